package sqlask

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"golang.org/x/term"
)

// Prompter reads one answer per call. io.EOF means the user is done, either
// because input ended or because they interrupted the prompt.
type Prompter interface {
	Ask(message string) (string, error)
	AskSecret(message string) (string, error)
}

// NewPrompter uses interactive survey prompts when in and out are both
// terminals and falls back to plain line reading otherwise.
func NewPrompter(in io.Reader, out io.Writer) Prompter {
	inFile, inOK := in.(*os.File)
	outFile, outOK := out.(*os.File)
	if inOK && outOK && term.IsTerminal(int(inFile.Fd())) && term.IsTerminal(int(outFile.Fd())) {
		return &surveyPrompter{in: inFile, out: outFile}
	}
	return NewLinePrompter(in, out)
}

type surveyPrompter struct {
	in  *os.File
	out *os.File
}

func (p *surveyPrompter) Ask(message string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Input{Message: message}, &answer, survey.WithStdio(p.in, p.out, os.Stderr))
	return answer, mapSurveyErr(err)
}

func (p *surveyPrompter) AskSecret(message string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Password{Message: message}, &answer, survey.WithStdio(p.in, p.out, os.Stderr))
	return answer, mapSurveyErr(err)
}

func mapSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return io.EOF
	}
	return err
}

type LinePrompter struct {
	reader *bufio.Reader
	out    io.Writer
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	if out == nil {
		out = io.Discard
	}
	return &LinePrompter{reader: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) Ask(message string) (string, error) {
	_, _ = fmt.Fprintf(p.out, "\n%s ", message)
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// AskSecret reads like Ask. Input is not a terminal here, so there is no
// echo to suppress.
func (p *LinePrompter) AskSecret(message string) (string, error) {
	return p.Ask(message)
}
