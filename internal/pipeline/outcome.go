package pipeline

import (
	"github.com/joseph-ayodele/notas-reader/constants"
	"github.com/joseph-ayodele/notas-reader/internal/common"
)

// OutcomeKind is the class of a finished run.
type OutcomeKind string

const (
	OutcomeExtractedFields OutcomeKind = "EXTRACTED_FIELDS"
	OutcomeConvertedOnly   OutcomeKind = "CONVERTED_ONLY"
	OutcomeFailed          OutcomeKind = "FAILED"
)

// CredentialsHint is returned with conversion-only outcomes.
const CredentialsHint = "Insira sua chave da OpenAI na barra lateral para processar a nota."

// Outcome is the result of one run. Markdown is kept whenever conversion
// succeeded, including failed and conversion-only runs.
type Outcome struct {
	Kind         OutcomeKind
	State        constants.RunState
	DocumentName string
	Markdown     string
	Fields       string
	Hint         string
	Err          error
}

func extracted(doc, md, fields string) Outcome {
	return Outcome{Kind: OutcomeExtractedFields, State: constants.RunStateDone, DocumentName: doc, Markdown: md, Fields: fields}
}

func convertedOnly(doc, md string) Outcome {
	return Outcome{Kind: OutcomeConvertedOnly, State: constants.RunStateAwaitingCredentials, DocumentName: doc, Markdown: md, Hint: CredentialsHint}
}

func failed(doc, md string, err error) Outcome {
	return Outcome{Kind: OutcomeFailed, State: constants.RunStateFailed, DocumentName: doc, Markdown: md, Err: err}
}

// Text is the payload a caller shows: the answer, the markdown, or "".
func (o Outcome) Text() string {
	switch o.Kind {
	case OutcomeExtractedFields:
		return o.Fields
	case OutcomeConvertedOnly:
		return o.Markdown
	default:
		return ""
	}
}

// ErrorKind returns the error code of a failed outcome, or "".
func (o Outcome) ErrorKind() string {
	return common.Kind(o.Err)
}
