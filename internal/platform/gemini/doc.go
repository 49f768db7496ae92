// Package gemini provides a classifier.Classifier backed by Google's Gemini
// multimodal models.
//
// The classifier sends the input file as an inline image part together with a
// fixed instruction and returns the model's text answer, trimmed. Transient API
// failures are retried with exponential backoff; blocked or empty responses are
// permanent failures.
//
// The package depends on google.golang.org/genai for communicating with the
// Gemini API.
package gemini
