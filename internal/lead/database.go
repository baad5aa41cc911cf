package lead

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const (
	leadsBucket    = "leads"
	contactsBucket = "lead_contacts"
)

var (
	// ErrLeadNotFound is returned when no lead has the requested ID
	ErrLeadNotFound = errors.New("lead not found")
	// ErrDuplicateLead is returned when the email or phone was already submitted
	ErrDuplicateLead = errors.New("this email or phone number has already been submitted")
)

// DB defines the interface for lead persistence
type DB interface {
	// InsertLead stores a new lead, failing with ErrDuplicateLead if its email or phone is taken
	InsertLead(lead *Lead) error

	// SaveLead overwrites an existing lead
	SaveLead(lead *Lead) error

	// ContactExists reports whether a lead with the email or phone exists
	ContactExists(email, phone string) (bool, error)

	GetLead(id string) (*Lead, error)

	// ListLeads returns all leads, newest first
	ListLeads() ([]*Lead, error)

	DeleteLead(id string) error

	Close() error
}

// BoltDB implements DB on top of bbolt
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens or creates the database at path
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{leadsBucket, contactsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func emailKey(email string) []byte {
	return []byte("email:" + email)
}

func phoneKey(phone string) []byte {
	return []byte("phone:" + phone)
}

// InsertLead checks the contact index and stores the lead in one transaction
func (b *BoltDB) InsertLead(lead *Lead) error {
	data, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("marshaling lead: %w", err)
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		leads := tx.Bucket([]byte(leadsBucket))
		contacts := tx.Bucket([]byte(contactsBucket))

		if leads.Get([]byte(lead.ID)) != nil {
			return fmt.Errorf("lead %s already exists", lead.ID)
		}
		if contacts.Get(emailKey(lead.Email)) != nil || contacts.Get(phoneKey(lead.Phone)) != nil {
			return ErrDuplicateLead
		}

		if err := contacts.Put(emailKey(lead.Email), []byte(lead.ID)); err != nil {
			return err
		}
		if err := contacts.Put(phoneKey(lead.Phone), []byte(lead.ID)); err != nil {
			return err
		}
		return leads.Put([]byte(lead.ID), data)
	})
}

// SaveLead overwrites a lead previously stored with InsertLead
func (b *BoltDB) SaveLead(lead *Lead) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(leadsBucket))
		if bucket.Get([]byte(lead.ID)) == nil {
			return fmt.Errorf("%w: %s", ErrLeadNotFound, lead.ID)
		}
		data, err := json.Marshal(lead)
		if err != nil {
			return fmt.Errorf("marshaling lead: %w", err)
		}
		return bucket.Put([]byte(lead.ID), data)
	})
}

// ContactExists looks the email and phone up in the contact index
func (b *BoltDB) ContactExists(email, phone string) (bool, error) {
	var exists bool
	err := b.db.View(func(tx *bbolt.Tx) error {
		contacts := tx.Bucket([]byte(contactsBucket))
		exists = contacts.Get(emailKey(email)) != nil || contacts.Get(phoneKey(phone)) != nil
		return nil
	})
	return exists, err
}

// GetLead retrieves a lead by ID
func (b *BoltDB) GetLead(id string) (*Lead, error) {
	var lead *Lead
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(leadsBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrLeadNotFound, id)
		}
		return json.Unmarshal(data, &lead)
	})
	if err != nil {
		return nil, err
	}
	return lead, nil
}

// ListLeads returns all leads, newest first
func (b *BoltDB) ListLeads() ([]*Lead, error) {
	leads := make([]*Lead, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(leadsBucket)).ForEach(func(k, v []byte) error {
			var lead Lead
			if err := json.Unmarshal(v, &lead); err != nil {
				return fmt.Errorf("unmarshaling lead: %w", err)
			}
			leads = append(leads, &lead)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].CreatedAt.After(leads[j].CreatedAt)
	})
	return leads, nil
}

// DeleteLead removes a lead and frees its email and phone for a new submission
func (b *BoltDB) DeleteLead(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		leads := tx.Bucket([]byte(leadsBucket))
		data := leads.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrLeadNotFound, id)
		}

		var lead Lead
		if err := json.Unmarshal(data, &lead); err != nil {
			return fmt.Errorf("unmarshaling lead: %w", err)
		}

		contacts := tx.Bucket([]byte(contactsBucket))
		for _, key := range [][]byte{emailKey(lead.Email), phoneKey(lead.Phone)} {
			if string(contacts.Get(key)) == id {
				if err := contacts.Delete(key); err != nil {
					return err
				}
			}
		}
		return leads.Delete([]byte(id))
	})
}

// Close closes the database
func (b *BoltDB) Close() error {
	return b.db.Close()
}
