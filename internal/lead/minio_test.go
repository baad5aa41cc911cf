package lead

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("MinioStorage", func() {
	var (
		server  *ghttp.Server
		storage *MinioStorage
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		storage, err = NewMinioStorage(MinioConfig{
			Endpoint:  server.Addr(),
			AccessKey: "access",
			SecretKey: "secret",
			Bucket:    "lead-images",
			Timeout:   5 * time.Second,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires a bucket", func() {
		_, err := NewMinioStorage(MinioConfig{Endpoint: server.Addr()})
		Expect(err).To(MatchError(ContainSubstring("bucket is required")))
	})

	Describe("Save", func() {
		When("the upload succeeds", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("PUT", "/lead-images/ada_1.jpg"),
					ghttp.VerifyHeaderKV("Content-Type", "image/jpeg"),
					ghttp.RespondWith(http.StatusOK, "", http.Header{"ETag": {`"d41d8cd98f00b204e9800998ecf8427e"`}}),
				))
			})

			It("returns the object name", func() {
				path, err := storage.Save("ada_1.jpg", []byte("jpeg"), "image/jpeg")
				Expect(err).NotTo(HaveOccurred())
				Expect(path).To(Equal("ada_1.jpg"))
				Expect(server.ReceivedRequests()).To(HaveLen(1))
			})
		})

		When("the server refuses the upload", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusForbidden, ""))
			})

			It("returns an error", func() {
				_, err := storage.Save("ada_1.jpg", []byte("jpeg"), "image/jpeg")
				Expect(err).To(MatchError(ContainSubstring("uploading object")))
			})
		})
	})

	Describe("Get", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("GET", "/lead-images/ada_1.jpg"),
				ghttp.RespondWith(http.StatusOK, "jpeg", http.Header{
					"Content-Type":  {"image/jpeg"},
					"ETag":          {`"abc"`},
					"Last-Modified": {"Thu, 15 Jan 2026 10:00:00 GMT"},
				}),
			))
		})

		It("returns the object data", func() {
			data, err := storage.Get("ada_1.jpg")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("jpeg"))
		})
	})

	Describe("Delete", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("DELETE", "/lead-images/ada_1.jpg"),
				ghttp.RespondWith(http.StatusNoContent, ""),
			))
		})

		It("removes the object", func() {
			Expect(storage.Delete("ada_1.jpg")).To(Succeed())
			Expect(server.ReceivedRequests()).To(HaveLen(1))
		})
	})

	Describe("EnsureBucket", func() {
		When("the bucket exists", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("HEAD", MatchRegexp(`^/lead-images/?$`)),
					ghttp.RespondWith(http.StatusOK, ""),
				))
			})

			It("does not create it", func() {
				Expect(storage.EnsureBucket(context.Background())).To(Succeed())
				Expect(server.ReceivedRequests()).To(HaveLen(1))
			})
		})

		When("the bucket is missing", func() {
			BeforeEach(func() {
				server.AppendHandlers(
					ghttp.CombineHandlers(
						ghttp.VerifyRequest("HEAD", MatchRegexp(`^/lead-images/?$`)),
						ghttp.RespondWith(http.StatusNotFound, ""),
					),
					ghttp.CombineHandlers(
						ghttp.VerifyRequest("PUT", MatchRegexp(`^/lead-images/?$`)),
						ghttp.RespondWith(http.StatusOK, ""),
					),
				)
			})

			It("creates it", func() {
				Expect(storage.EnsureBucket(context.Background())).To(Succeed())
				Expect(server.ReceivedRequests()).To(HaveLen(2))
			})
		})
	})
})
