package lead

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		db  *BoltDB
		now time.Time
	)

	newLead := func(id, email, phone string, created time.Time) *Lead {
		return &Lead{
			ID:            id,
			Contact:       Contact{FirstName: "Ada", LastName: "Lovelace", Email: email, Phone: phone},
			Score:         70,
			Category:      "Commercial",
			WebhookStatus: WebhookPending,
			CreatedAt:     created,
			UpdatedAt:     created,
		}
	}

	BeforeEach(func() {
		var err error
		db, err = NewBoltDB(filepath.Join(GinkgoT().TempDir(), "test.db"))
		Expect(err).NotTo(HaveOccurred())
		now = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("InsertLead", func() {
		var err error

		JustBeforeEach(func() {
			err = db.InsertLead(newLead("lead-1", "ada@example.com", "4155550123", now))
		})

		It("should store the lead", func() {
			Expect(err).NotTo(HaveOccurred())

			lead, getErr := db.GetLead("lead-1")
			Expect(getErr).NotTo(HaveOccurred())
			Expect(lead.Email).To(Equal("ada@example.com"))
			Expect(lead.Score).To(Equal(70))
			Expect(lead.CreatedAt.Equal(now)).To(BeTrue())
		})

		It("should index the contact", func() {
			exists, existsErr := db.ContactExists("ada@example.com", "")
			Expect(existsErr).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())

			exists, _ = db.ContactExists("someone@else.com", "4155550123")
			Expect(exists).To(BeTrue())

			exists, _ = db.ContactExists("someone@else.com", "2125550199")
			Expect(exists).To(BeFalse())
		})

		It("should reject the same email", func() {
			Expect(db.InsertLead(newLead("lead-2", "ada@example.com", "2125550199", now))).To(MatchError(ErrDuplicateLead))
			_, getErr := db.GetLead("lead-2")
			Expect(getErr).To(MatchError(ErrLeadNotFound))
		})

		It("should reject the same phone", func() {
			Expect(db.InsertLead(newLead("lead-2", "grace@example.com", "4155550123", now))).To(MatchError(ErrDuplicateLead))
		})

		It("should leave the index untouched after a rejected insert", func() {
			Expect(db.InsertLead(newLead("lead-2", "grace@example.com", "4155550123", now))).To(HaveOccurred())
			exists, _ := db.ContactExists("grace@example.com", "")
			Expect(exists).To(BeFalse())
		})
	})

	Describe("SaveLead", func() {
		It("should update an existing lead", func() {
			lead := newLead("lead-1", "ada@example.com", "4155550123", now)
			Expect(db.InsertLead(lead)).To(Succeed())

			lead.WebhookStatus = WebhookSuccess
			lead.WebhookSent = true
			Expect(db.SaveLead(lead)).To(Succeed())

			stored, err := db.GetLead("lead-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.WebhookStatus).To(Equal(WebhookSuccess))
			Expect(stored.WebhookSent).To(BeTrue())
		})

		It("should refuse a lead that was never inserted", func() {
			Expect(db.SaveLead(newLead("ghost", "g@example.com", "2125550199", now))).To(MatchError(ErrLeadNotFound))
		})
	})

	Describe("GetLead", func() {
		It("returns ErrLeadNotFound for an unknown ID", func() {
			_, err := db.GetLead("missing")
			Expect(err).To(MatchError(ErrLeadNotFound))
		})
	})

	Describe("ListLeads", func() {
		When("there are no leads", func() {
			It("returns an empty list", func() {
				leads, err := db.ListLeads()
				Expect(err).NotTo(HaveOccurred())
				Expect(leads).To(BeEmpty())
			})
		})

		When("there are several leads", func() {
			BeforeEach(func() {
				Expect(db.InsertLead(newLead("a", "a@example.com", "2125550101", now))).To(Succeed())
				Expect(db.InsertLead(newLead("b", "b@example.com", "2125550102", now.Add(2*time.Hour)))).To(Succeed())
				Expect(db.InsertLead(newLead("c", "c@example.com", "2125550103", now.Add(time.Hour)))).To(Succeed())
			})

			It("returns them newest first", func() {
				leads, err := db.ListLeads()
				Expect(err).NotTo(HaveOccurred())
				Expect(leads).To(HaveLen(3))
				Expect([]string{leads[0].ID, leads[1].ID, leads[2].ID}).To(Equal([]string{"b", "c", "a"}))
			})
		})
	})

	Describe("DeleteLead", func() {
		BeforeEach(func() {
			Expect(db.InsertLead(newLead("lead-1", "ada@example.com", "4155550123", now))).To(Succeed())
		})

		It("removes the lead", func() {
			Expect(db.DeleteLead("lead-1")).To(Succeed())
			_, err := db.GetLead("lead-1")
			Expect(err).To(MatchError(ErrLeadNotFound))
		})

		It("frees the email and phone", func() {
			Expect(db.DeleteLead("lead-1")).To(Succeed())
			Expect(db.InsertLead(newLead("lead-2", "ada@example.com", "4155550123", now))).To(Succeed())
		})

		It("returns ErrLeadNotFound for an unknown ID", func() {
			Expect(db.DeleteLead("missing")).To(MatchError(ErrLeadNotFound))
		})
	})

	It("keeps leads across reopen", func() {
		path := filepath.Join(GinkgoT().TempDir(), "reopen.db")
		first, err := NewBoltDB(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(first.InsertLead(newLead("lead-1", "ada@example.com", "4155550123", now))).To(Succeed())
		Expect(first.Close()).To(Succeed())

		second, err := NewBoltDB(path)
		Expect(err).NotTo(HaveOccurred())
		defer second.Close()
		Expect(second.InsertLead(newLead("lead-2", "ada@example.com", "2125550199", now))).To(MatchError(ErrDuplicateLead))
	})
})
