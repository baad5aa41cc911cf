package analysis

import (
	"context"
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server   *ghttp.Server
		analyzer *Ollama
		result   *Result
		err      error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		analyzer, err = NewOllama(server.URL(), "llava")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		result, err = analyzer.Analyze(context.Background(), []byte("png bytes"), "image/png")
	})

	When("the model returns a report", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					var req ollamaChatRequest
					Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
					Expect(req.Model).To(Equal("llava"))
					Expect(req.Messages).To(HaveLen(2))
					Expect(req.Messages[1].Images).To(HaveLen(1))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: `{"suitability_score": 64, "market_categorization": {"primary": "Fitness"}}`},
					Done:    true,
				}),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should parse the report", func() {
			Expect(result.SuitabilityScore).To(Equal(64))
			Expect(result.Category()).To(Equal("Fitness"))
		})
	})

	When("the model answers with prose", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: "I can't tell."},
				Done:    true,
			}))
		})

		It("should report an analysis failure rather than an error", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Valid()).To(BeFalse())
		})
	})

	When("the server fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("status 500")))
		})
	})
})

var _ = Describe("New", func() {
	It("should build an Ollama analyzer", func() {
		analyzer, err := New(Config{Kind: "ollama"})
		Expect(err).NotTo(HaveOccurred())
		Expect(analyzer).To(BeAssignableToTypeOf(&Ollama{}))
	})

	It("should require a Gemini key", func() {
		_, err := New(Config{Kind: "gemini"})
		Expect(err).To(MatchError(ContainSubstring("api key is required")))
	})

	It("should reject unknown kinds", func() {
		_, err := New(Config{Kind: "clip"})
		Expect(err).To(MatchError(ContainSubstring("invalid analyzer type")))
	})
})
