package answer

import (
	"fmt"
	"strings"
)

const (
	strictSystemInstruction = "You are a helpful document assistant that provides accurate answers based on the provided context."
	hybridSystemInstruction = "You are a helpful document assistant. Prefer the provided document context and supplement it with general knowledge only when the documents are insufficient."
)

const strictPromptTemplate = `CONTEXT FROM DOCUMENTS:
%s

USER QUESTION:
%s

INSTRUCTIONS:
1. Answer the question using ONLY information from the context above
2. If the context doesn't contain relevant information, say "%s"
3. Cite sources by referencing [Source X] numbers
4. Be concise and accurate
5. Include page numbers when mentioning specific information

ANSWER:`

const hybridPromptTemplate = `CONTEXT FROM DOCUMENTS (may be short or partial):
%s
%s
USER QUESTION:
%s

INSTRUCTIONS:
1. Prefer information from the document context when it is relevant
2. You may use general knowledge if the documents are insufficient
3. Cite sources by referencing [Source X] numbers when you use them
4. Be concise and accurate
5. Include page numbers when citing specific information

ANSWER:`

// BuildStrictPrompt builds the prompt for strict grounding: the model may
// use only the supplied context and must emit the fixed refusal sentence
// when the context is insufficient.
func BuildStrictPrompt(query, contextText string) string {
	return fmt.Sprintf(strictPromptTemplate, contextText, query, RefusalSentence)
}

// BuildHybridPrompt builds the prompt for hybrid grounding. research is
// optional supplemental text from outside the document index; when empty,
// the prompt carries no research section.
func BuildHybridPrompt(query, contextText, research string) string {
	researchSection := ""
	if strings.TrimSpace(research) != "" {
		researchSection = fmt.Sprintf("\nSUPPLEMENTAL RESEARCH:\n%s\n", research)
	}
	return fmt.Sprintf(hybridPromptTemplate, contextText, researchSection, query)
}
