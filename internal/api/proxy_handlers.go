package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/Duke0404/readersync/internal/remote"
)

// The reader UI cannot talk to the backend directly because the session
// cookie lives in the daemon. These routes proxy the reader features that
// need the backend: speech synthesis and translation.

func (s *Server) registerProxyRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "readAloud",
		Method:      http.MethodPost,
		Path:        "/api/v1/readaloud",
		Summary:     "Synthesize speech",
		Tags:        []string{"Reader"},
	}, s.handleReadAloud)

	huma.Register(s.api, huma.Operation{
		OperationID: "translate",
		Method:      http.MethodPost,
		Path:        "/api/v1/translate",
		Summary:     "Translate text",
		Tags:        []string{"Reader"},
	}, s.handleTranslate)

	huma.Register(s.api, huma.Operation{
		OperationID: "listLanguages",
		Method:      http.MethodGet,
		Path:        "/api/v1/translate/languages",
		Summary:     "List translation languages",
		Tags:        []string{"Reader"},
	}, s.handleLanguages)
}

// ReadAloudInput carries text for speech synthesis.
type ReadAloudInput struct {
	Body struct {
		Text  string `json:"text" minLength:"1" doc:"Text to synthesize"`
		Voice string `json:"voice,omitempty" doc:"Voice model, backend default when empty"`
	}
}

// ReadAloudOutput carries synthesized audio.
type ReadAloudOutput struct {
	Body struct {
		Audio []byte `json:"audio" doc:"Audio payload, base64-encoded"`
	}
}

// TranslateInput carries text for translation.
type TranslateInput struct {
	Body struct {
		Text   string `json:"text" minLength:"1" doc:"Text to translate"`
		Target string `json:"target" minLength:"2" doc:"Target language code"`
	}
}

// TranslateOutput carries the translated text.
type TranslateOutput struct {
	Body struct {
		TranslatedText string `json:"translatedText" doc:"Translated text"`
	}
}

// LanguagesOutput lists available translation targets.
type LanguagesOutput struct {
	Body struct {
		Languages []remote.Language `json:"languages" doc:"Available target languages"`
	}
}

func (s *Server) handleReadAloud(ctx context.Context, input *ReadAloudInput) (*ReadAloudOutput, error) {
	audio, err := s.services.Remote.ReadAloud(ctx, input.Body.Text, input.Body.Voice)
	if err != nil {
		return nil, err
	}

	out := &ReadAloudOutput{}
	out.Body.Audio = audio
	return out, nil
}

func (s *Server) handleTranslate(ctx context.Context, input *TranslateInput) (*TranslateOutput, error) {
	translated, err := s.services.Remote.Translate(ctx, input.Body.Text, input.Body.Target)
	if err != nil {
		return nil, err
	}

	out := &TranslateOutput{}
	out.Body.TranslatedText = translated
	return out, nil
}

func (s *Server) handleLanguages(ctx context.Context, _ *struct{}) (*LanguagesOutput, error) {
	languages, err := s.services.Remote.Languages(ctx)
	if err != nil {
		return nil, err
	}

	out := &LanguagesOutput{}
	out.Body.Languages = languages
	return out, nil
}
