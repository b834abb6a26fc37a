package llm

import "strings"

// BuildSystemPrompt is the fixed instruction sent with every document.
func BuildSystemPrompt() string {
	parts := []string{
		"You are an expert in extracting data from Ecuadorian 'retención' documents.",
		"Return ONLY a JSON object with exactly these string keys: " + strings.Join(RetentionFieldNames, ", ") + ".",
		"Copy each value as printed on the document; do not reformat numbers or dates.",
		"Never output null.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt accompanies the attached PDF.
func BuildUserPrompt(fileName string) string {
	var b strings.Builder
	b.WriteString("Extract the following fields from the attached PDF document:\n")
	for _, name := range RetentionFieldNames {
		b.WriteString("- ")
		b.WriteString(name)
		b.WriteString("\n")
	}
	b.WriteString("\nReturn the extracted data in JSON format.")
	if f := strings.TrimSpace(fileName); f != "" {
		b.WriteString("\nFilename: ")
		b.WriteString(f)
	}
	return b.String()
}
