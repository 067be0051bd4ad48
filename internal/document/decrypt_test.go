package document

import (
	"encoding/base64"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Decrypter", func() {
	var (
		server    *ghttp.Server
		decrypter *Decrypter
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		decrypter, err = NewDecrypter(server.URL())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("NewDecrypter", func() {
		When("the base URL is empty", func() {
			It("returns the error", func() {
				_, err := NewDecrypter("")
				Expect(err).To(MatchError("decrypter base URL is required"))
			})
		})
	})

	Describe("Decrypt", func() {
		var (
			out []byte
			err error
		)

		JustBeforeEach(func() {
			out, err = decrypter.Decrypt([]byte("encrypted data"), "secret")
		})

		When("the service decrypts the document", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("POST", "/decrypt"),
					ghttp.VerifyContentType("application/json"),
					ghttp.VerifyJSON(`{
						"data": "`+base64.StdEncoding.EncodeToString([]byte("encrypted data"))+`",
						"password": "secret"
					}`),
					ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
						"data": []byte("decrypted data"),
					}),
				))
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the decrypted bytes", func() {
				Expect(out).To(Equal([]byte("decrypted data")))
			})
		})

		When("the service reports a wrong password", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
					"error": "incorrect password",
				}))
			})

			It("returns the error", func() {
				Expect(err).To(MatchError("decrypting document: incorrect password"))
			})
		})

		When("the service returns an error status", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusBadGateway, "upstream down"))
			})

			It("returns the error with the response body", func() {
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("status 502"))
			})
		})
	})
})
