package analysis

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func jpegFixture() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, img, nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("preparePhoto", func() {
	var (
		data        []byte
		contentType string
		out         []byte
		err         error
	)

	JustBeforeEach(func() {
		out, err = preparePhoto(data, contentType)
	})

	When("the upload is a JPEG", func() {
		BeforeEach(func() {
			data = jpegFixture()
			contentType = "image/jpeg"
		})

		It("should convert it to PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(out[:8]).To(Equal(pngMagic))
		})
	})

	When("the upload is already PNG", func() {
		BeforeEach(func() {
			data = []byte("already png bytes")
			contentType = "image/png"
		})

		It("should pass it through", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(data))
		})
	})

	When("the upload is empty", func() {
		BeforeEach(func() {
			data = nil
			contentType = "image/jpeg"
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("no image data")))
		})
	})

	When("the upload cannot be decoded", func() {
		BeforeEach(func() {
			data = []byte("definitely not a photo")
			contentType = "image/jpeg"
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("unsupported image format")))
		})
	})
})

var _ = Describe("isHEICFormat", func() {
	It("should detect the heic brand", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypheic\x00\x00"))).To(BeTrue())
	})

	It("should reject short data", func() {
		Expect(isHEICFormat([]byte("ftyp"))).To(BeFalse())
	})

	It("should reject other brands", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypisom\x00\x00"))).To(BeFalse())
	})
})

var _ = Describe("DetectContentType", func() {
	It("should prefer the declared header", func() {
		Expect(DetectContentType("me.png", "Image/JPEG")).To(Equal("image/jpeg"))
	})

	It("should fall back to the extension", func() {
		Expect(DetectContentType("IMG_0001.HEIC", "")).To(Equal("image/heic"))
		Expect(DetectContentType("card.pdf", "application/octet-stream")).To(Equal("application/pdf"))
	})

	It("should report unknown types as octet-stream", func() {
		Expect(DetectContentType("notes.txt", "")).To(Equal("application/octet-stream"))
	})
})

var _ = Describe("SupportedContentType", func() {
	It("should accept images and PDFs", func() {
		Expect(SupportedContentType("image/webp")).To(BeTrue())
		Expect(SupportedContentType("application/pdf")).To(BeTrue())
	})

	It("should reject everything else", func() {
		Expect(SupportedContentType("text/plain")).To(BeFalse())
	})
})
