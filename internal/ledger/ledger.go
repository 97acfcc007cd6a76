package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types recorded on the audit chain.
const (
	EventTenderCreated = "tender_created"
	EventBidSubmitted  = "bid_submitted"
	EventTenderClosed  = "tender_closed"
	EventAwardDecided  = "award_decided"
)

// Entry is one link of the hash chain. Hash covers the payload hash and
// the previous entry's hash, so any tampering with an earlier record
// breaks every later link.
type Entry struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	TenderID   string    `json:"tender_id"`
	EventType  string    `json:"event_type"`
	Payload    string    `json:"payload"` // canonical JSON of the recorded fields
	RecordHash string    `json:"record_hash"`
	PrevHash   string    `json:"prev_hash"`
	Hash       string    `json:"hash"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is the persistence the ledger writes through.
type Store interface {
	AppendLedgerEntry(entry *Entry) error
	LastLedgerEntry() (*Entry, error)
	LedgerEntryBefore(seq int64) (*Entry, error)
	LedgerEntriesByTender(tenderID string) ([]Entry, error)
}

// Ledger appends audit records and verifies per-tender trails.
type Ledger struct {
	store Store

	// mu serializes the head read and the append so concurrent writers
	// cannot chain off the same predecessor.
	mu sync.Mutex
}

func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// genesisHash anchors the first entry of the chain.
const genesisHash = "0x" + "0000000000000000000000000000000000000000000000000000000000000000"

// HashRecord produces the 0x-prefixed sha256 of the record fields
// serialized as JSON with sorted keys and the timestamp included.
func HashRecord(fields map[string]interface{}, at time.Time) (string, string, error) {
	canonical := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		canonical[k] = v
	}
	canonical["timestamp"] = at.UTC().Format(time.RFC3339)

	// encoding/json writes map keys in sorted order, giving a canonical form
	payload, err := json.Marshal(canonical)
	if err != nil {
		return "", "", fmt.Errorf("failed to serialize ledger record: %w", err)
	}

	sum := sha256.Sum256(payload)
	return "0x" + hex.EncodeToString(sum[:]), string(payload), nil
}

// chainHash links a record hash to its predecessor.
func chainHash(recordHash, prevHash string) string {
	sum := sha256.Sum256([]byte(prevHash + recordHash))
	return "0x" + hex.EncodeToString(sum[:])
}

// Record appends a new entry for the given tender event and returns it.
func (l *Ledger) Record(tenderID, eventType string, fields map[string]interface{}) (*Entry, error) {
	now := time.Now()
	recordHash, payload, err := HashRecord(fields, now)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	prevHash := genesisHash
	if last, err := l.store.LastLedgerEntry(); err != nil {
		return nil, fmt.Errorf("failed to read ledger head: %w", err)
	} else if last != nil {
		prevHash = last.Hash
	}

	entry := &Entry{
		ID:         uuid.New().String(),
		TenderID:   tenderID,
		EventType:  eventType,
		Payload:    payload,
		RecordHash: recordHash,
		PrevHash:   prevHash,
		Hash:       chainHash(recordHash, prevHash),
		CreatedAt:  now,
	}
	if err := l.store.AppendLedgerEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	slog.Info("ledger entry recorded",
		"tender_id", tenderID,
		"event_type", eventType,
		"hash", entry.Hash)
	return entry, nil
}

// TrailVerification is the outcome of replaying a tender's audit trail.
type TrailVerification struct {
	TenderID string  `json:"tender_id"`
	Entries  []Entry `json:"entries"`
	Valid    bool    `json:"valid"`
	Broken   string  `json:"broken_at,omitempty"` // entry ID where the chain first fails
}

// VerifyTrail recomputes each link of a tender's trail. Payload hashes
// are recomputed from the stored payload, chain hashes from the stored
// predecessor links, and every PrevHash must match the entry actually
// stored immediately before it. The chain is global, so the predecessor
// may belong to another tender.
func (l *Ledger) VerifyTrail(tenderID string) (*TrailVerification, error) {
	entries, err := l.store.LedgerEntriesByTender(tenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger trail: %w", err)
	}

	result := &TrailVerification{TenderID: tenderID, Entries: entries, Valid: true}
	for _, e := range entries {
		sum := sha256.Sum256([]byte(e.Payload))
		if "0x"+hex.EncodeToString(sum[:]) != e.RecordHash {
			result.Valid = false
			result.Broken = e.ID
			break
		}
		if chainHash(e.RecordHash, e.PrevHash) != e.Hash {
			result.Valid = false
			result.Broken = e.ID
			break
		}

		prev, err := l.store.LedgerEntryBefore(e.Seq)
		if err != nil {
			return nil, fmt.Errorf("failed to load ledger predecessor: %w", err)
		}
		expected := genesisHash
		if prev != nil {
			expected = prev.Hash
		}
		if e.PrevHash != expected {
			result.Valid = false
			result.Broken = e.ID
			break
		}
	}
	return result, nil
}
