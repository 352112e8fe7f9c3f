package llm

import "strings"

// ExtractionSchemaVersion identifies the requested field set below. Changing
// the labels or templates means bumping it.
const ExtractionSchemaVersion = "nfse-fields/v1"

const DefaultModel = "gpt-4o-mini"

// Requested invoice fields, in prompt order.
const (
	FieldIssueDate          = "Data de Emissão"
	FieldFederalWithholding = "Retenções Federais"
	FieldGrossTotal         = "Total Bruto"
	FieldNetTotal           = "Total Líquido"
	FieldProviderCNPJ       = "CNPJ da empresa que realizou o serviço"
	FieldProviderName       = "Nome da empresa que realizou o serviço"
	FieldBuyerCNPJ          = "CNPJ da empresa que comprou o serviço"
	FieldBuyerName          = "Nome da empresa que comprou o serviço"
)

var fieldLabels = [...]string{
	FieldIssueDate,
	FieldFederalWithholding,
	FieldGrossTotal,
	FieldNetTotal,
	FieldProviderCNPJ,
	FieldProviderName,
	FieldBuyerCNPJ,
	FieldBuyerName,
}

// FieldLabels returns the requested labels in order.
func FieldLabels() []string {
	out := make([]string, len(fieldLabels))
	copy(out, fieldLabels[:])
	return out
}

const systemPrompt = "Você é um assistente que extrai informações de notas fiscais."

const userPromptHeader = "Você é um especialista em leitura de Notas Fiscais.\n" +
	"Abaixo está o conteúdo da nota em Markdown:\n\n"

const userPromptInstructions = "\n\nExtraia e responda APENAS nos campos abaixo:\n\n"

// PromptBuilder renders extraction requests for a given model.
type PromptBuilder struct {
	Model string
}

// Build embeds markdown verbatim into the fixed template. It is pure: the same
// input always yields the same request.
func (b PromptBuilder) Build(markdown string) Request {
	model := b.Model
	if model == "" {
		model = DefaultModel
	}
	return Request{
		Model: model,
		Messages: []Message{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: BuildUserPrompt(markdown)},
		},
		Temperature: 0,
	}
}

// BuildExtractionRequest builds a request for DefaultModel.
func BuildExtractionRequest(markdown string) Request {
	return PromptBuilder{}.Build(markdown)
}

// BuildUserPrompt renders the user message around the converted text.
func BuildUserPrompt(markdown string) string {
	var b strings.Builder
	b.WriteString(userPromptHeader)
	b.WriteString(markdown)
	b.WriteString(userPromptInstructions)
	for i, label := range fieldLabels {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(label)
		b.WriteString(":")
	}
	return b.String()
}
