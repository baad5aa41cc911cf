package lead

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Contact", func() {
	Describe("Validate", func() {
		DescribeTable("rejects incomplete or malformed contacts",
			func(mutate func(c *Contact), message string) {
				c := validContact()
				mutate(&c)
				err := c.Validate()
				Expect(err).To(MatchError(ErrInvalidContact))
				Expect(err).To(MatchError(ContainSubstring(message)))
			},
			Entry("missing first name", func(c *Contact) { c.FirstName = " " }, "first name"),
			Entry("missing last name", func(c *Contact) { c.LastName = "" }, "last name"),
			Entry("missing email", func(c *Contact) { c.Email = "" }, "email is required"),
			Entry("email without domain", func(c *Contact) { c.Email = "ada@example" }, "not valid"),
			Entry("email with spaces", func(c *Contact) { c.Email = "ada lovelace@example.com" }, "not valid"),
			Entry("missing phone", func(c *Contact) { c.Phone = "--" }, "phone is required"),
			Entry("short phone", func(c *Contact) { c.Phone = "415555012" }, "10 digits"),
			Entry("country code", func(c *Contact) { c.Phone = "+1 415 555 0123" }, "10 digits"),
			Entry("leading one", func(c *Contact) { c.Phone = "1415555012" }, "start with 1"),
		)

		It("accepts a formatted phone number", func() {
			c := validContact()
			c.Phone = "415.555.0123"
			Expect(c.Validate()).To(Succeed())
		})
	})

	Describe("Normalized", func() {
		It("cleans up what the visitor typed", func() {
			c := validContact().Normalized()
			Expect(c.Email).To(Equal("ada@example.com"))
			Expect(c.Phone).To(Equal("4155550123"))
			Expect(c.FirstName).To(Equal("Ada"))
		})
	})
})
