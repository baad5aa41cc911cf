package lead

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(filepath.Join(tmpDir, "photos"))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		It("writes the file under the base path", func() {
			path, err := storage.Save("ada_1.jpg", []byte("jpeg"), "image/jpeg")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal("ada_1.jpg"))
			Expect(filepath.Join(tmpDir, "photos", "ada_1.jpg")).To(BeAnExistingFile())
		})

		It("refuses names outside the base path", func() {
			_, err := storage.Save("../escape.jpg", []byte("jpeg"), "image/jpeg")
			Expect(err).To(MatchError(ContainSubstring("invalid storage path")))
			Expect(filepath.Join(tmpDir, "escape.jpg")).NotTo(BeAnExistingFile())
		})
	})

	Describe("Get", func() {
		It("returns the saved data", func() {
			_, err := storage.Save("ada_1.jpg", []byte("jpeg"), "image/jpeg")
			Expect(err).NotTo(HaveOccurred())

			data, err := storage.Get("ada_1.jpg")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("jpeg"))
		})

		It("returns an error for a missing file", func() {
			_, err := storage.Get("missing.jpg")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Delete", func() {
		It("removes the file", func() {
			_, err := storage.Save("ada_1.jpg", []byte("jpeg"), "image/jpeg")
			Expect(err).NotTo(HaveOccurred())

			Expect(storage.Delete("ada_1.jpg")).To(Succeed())
			Expect(filepath.Join(tmpDir, "photos", "ada_1.jpg")).NotTo(BeAnExistingFile())
		})

		It("returns an error for a missing file", func() {
			Expect(storage.Delete("missing.jpg")).To(HaveOccurred())
		})
	})
})
