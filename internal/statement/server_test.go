package statement

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/statement-extractor/internal/extraction"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		storage     *mockStorage
		extractor   *mockExtractor
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	newTestService := func() *Service {
		return NewServiceWithDeps(
			db,
			storage,
			extractor,
			&mockTokenizer{},
			&mockTextExtractor{text: "01/04/24 UPI-SWIGGY ORDER 500.00 10,000.00 plus enough text to pass the scanned-document threshold easily"},
			&mockDecrypter{out: []byte("decrypted")},
			nil,
			&mockIDGenerator{id: "test-id-123"},
			&mockTimeSource{},
		)
	}

	uploadRequest := func(fields map[string]string) *http.Request {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		part, err := writer.CreateFormFile("file", "statement.pdf")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("fake pdf data"))
		Expect(err).NotTo(HaveOccurred())
		for k, v := range fields {
			Expect(writer.WriteField(k, v)).NotTo(HaveOccurred())
		}
		Expect(writer.Close()).NotTo(HaveOccurred())

		req, err := http.NewRequest("POST", ghttpServer.URL()+"/api/statements", &body)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req
	}

	BeforeEach(func() {
		db = newMockDB()
		storage = newMockStorage()
		extractor = newMockExtractor()
		service = newTestService()
		auth = BasicAuth{}
		server = NewServerWithMux(service, auth, "0.1.0-test", http.NewServeMux())
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handleHealth", func() {
		It("should report status, version and OCR availability", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/health")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var body map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&body)).NotTo(HaveOccurred())
			Expect(body["status"]).To(Equal("ok"))
			Expect(body["version"]).To(Equal("0.1.0-test"))
			Expect(body["ocr_configured"]).To(Equal(false))
		})
	})

	Describe("handleListStatements", func() {
		When("statements exist", func() {
			BeforeEach(func() {
				db.statements["id1"] = &Statement{ID: "id1"}
				db.statements["id2"] = &Statement{ID: "id2"}
			})

			It("should return all statements as JSON", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/statements")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var statements []*Statement
				Expect(json.NewDecoder(resp.Body).Decode(&statements)).NotTo(HaveOccurred())
				Expect(statements).To(HaveLen(2))
			})
		})
	})

	Describe("handleUploadStatement", func() {
		When("the upload succeeds", func() {
			It("should return the created statement", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(nil))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var statement Statement
				Expect(json.NewDecoder(resp.Body).Decode(&statement)).NotTo(HaveOccurred())
				Expect(statement.ID).To(Equal("test-id-123"))
				Expect(statement.Transactions).To(HaveLen(2))
			})
		})

		When("no file is provided", func() {
			It("should return bad request", func() {
				var body bytes.Buffer
				writer := multipart.NewWriter(&body)
				Expect(writer.Close()).NotTo(HaveOccurred())

				req, err := http.NewRequest("POST", ghttpServer.URL()+"/api/statements", &body)
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Content-Type", writer.FormDataContentType())

				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("no strategy extracts any transactions", func() {
			BeforeEach(func() {
				extractor.err = extraction.ErrNoTransactions
				setupServer()
			})

			It("should return unprocessable entity", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(nil))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
			})
		})

		When("decryption fails", func() {
			BeforeEach(func() {
				service = NewServiceWithDeps(
					db, storage, extractor,
					&mockTokenizer{},
					&mockTextExtractor{},
					&mockDecrypter{err: errors.New("incorrect password")},
					nil,
					&mockIDGenerator{id: "test-id-123"},
					&mockTimeSource{},
				)
				server = NewServerWithMux(service, auth, "0.1.0-test", http.NewServeMux())
				setupServer()
			})

			It("should return bad request", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(map[string]string{"password": "wrong"}))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("handleGetStatement", func() {
		When("the statement exists", func() {
			BeforeEach(func() {
				db.statements["test-id"] = &Statement{ID: "test-id", Method: "text_regex"}
			})

			It("should return the statement", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/statements/test-id")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var statement Statement
				Expect(json.NewDecoder(resp.Body).Decode(&statement)).NotTo(HaveOccurred())
				Expect(statement.Method).To(Equal("text_regex"))
			})
		})

		When("the statement does not exist", func() {
			It("should return not found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/statements/nope")
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("handleGetStatementFile", func() {
		BeforeEach(func() {
			db.statements["test-id"] = &Statement{
				ID:          "test-id",
				Filename:    "test-id_statement.pdf",
				ContentType: "application/pdf",
			}
			storage.files["test-id_statement.pdf"] = []byte("pdf bytes")
		})

		It("should return the file with its content type", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/statements/test-id/file")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/pdf"))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(Equal("pdf bytes"))
		})
	})

	Describe("handleExportCSV", func() {
		BeforeEach(func() {
			db.statements["test-id"] = &Statement{
				ID: "test-id",
				Transactions: []extraction.Transaction{
					{Date: "2024-04-01", Amount: 500, Type: extraction.TypeDebit, MerchantRaw: "UPI-SWIGGY", ClosingBalance: 10000, ConfidenceScore: 85},
				},
			}
		})

		It("should return a CSV attachment", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/statements/test-id/csv")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("text/csv"))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("statement_test-id.csv"))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(HavePrefix("Date,Merchant,Amount,Type,Balance,Confidence\n"))
			Expect(string(body)).To(ContainSubstring("2024-04-01,UPI-SWIGGY,500.00,debit,10000.00,85"))
		})
	})

	Describe("handleDeleteStatement", func() {
		BeforeEach(func() {
			db.statements["test-id"] = &Statement{ID: "test-id", Filename: "f.pdf"}
			storage.files["f.pdf"] = []byte("data")
		})

		It("should delete the statement", func() {
			req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/statements/test-id", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.statements).NotTo(HaveKey("test-id"))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "user", Password: "pass"}
			server = NewServerWithMux(service, auth, "0.1.0-test", http.NewServeMux())
			setupServer()
		})

		When("credentials are missing", func() {
			It("should return unauthorized", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/statements")
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			})
		})

		When("credentials are correct", func() {
			It("should serve the request", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/statements", nil)
				Expect(err).NotTo(HaveOccurred())
				req.SetBasicAuth("user", "pass")
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})
		})

		When("the health endpoint is hit without credentials", func() {
			It("should still respond", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/health")
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})
		})
	})
})
