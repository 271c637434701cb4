package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/styleverse/progression/internal/evaluation"
	"github.com/styleverse/progression/pkg/formula"
)

// Ledger is the slice of the evaluation store the exporter reads.
type Ledger interface {
	GetOrCreateState(ctx context.Context, showID string, seasonID *string, characterKey string, defaults formula.Stats) (*evaluation.CharacterState, error)
	History(ctx context.Context, q evaluation.HistoryQuery) ([]evaluation.LedgerEntry, error)
}

// Bundle is the exported JSON document: the character's current state
// plus its full ledger at export time.
type Bundle struct {
	ExportID       string                   `json:"export_id"`
	ShowID         string                   `json:"show_id"`
	CharacterKey   string                   `json:"character_key"`
	FormulaVersion string                   `json:"formula_version"`
	State          *evaluation.CharacterState `json:"state"`
	Ledger         []evaluation.LedgerEntry `json:"ledger"`
	ExportedAt     time.Time                `json:"exported_at"`
}

// Record describes a stored export.
type Record struct {
	ExportID   string    `json:"export_id"`
	ShowID     string    `json:"show_id"`
	Entries    int       `json:"entries"`
	ExportedAt time.Time `json:"exported_at"`
}

// Service builds and stores ledger export bundles.
type Service struct {
	ledger  Ledger
	storage StorageClient
}

// NewService creates an export service.
func NewService(ledger Ledger, storage StorageClient) *Service {
	return &Service{ledger: ledger, storage: storage}
}

// Export bundles the character's state and ledger and writes it to
// storage. characterKey defaults to the show's lead.
func (s *Service) Export(ctx context.Context, showID string, seasonID *string, characterKey string) (*Record, error) {
	if characterKey == "" {
		characterKey = evaluation.DefaultCharacterKey
	}

	state, err := s.ledger.GetOrCreateState(ctx, showID, seasonID, characterKey, formula.DefaultStats())
	if err != nil {
		return nil, fmt.Errorf("load character state: %w", err)
	}
	entries, err := s.ledger.History(ctx, evaluation.HistoryQuery{
		ShowID:       showID,
		CharacterKey: characterKey,
		Limit:        500,
	})
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	bundle := Bundle{
		ExportID:       uuid.New().String(),
		ShowID:         showID,
		CharacterKey:   characterKey,
		FormulaVersion: formula.Version,
		State:          state,
		Ledger:         entries,
		ExportedAt:     time.Now().UTC(),
	}
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export bundle: %w", err)
	}
	if err := s.storage.PutExport(ctx, showID, bundle.ExportID, data); err != nil {
		return nil, fmt.Errorf("store export: %w", err)
	}

	return &Record{
		ExportID:   bundle.ExportID,
		ShowID:     showID,
		Entries:    len(entries),
		ExportedAt: bundle.ExportedAt,
	}, nil
}

// Fetch retrieves a stored export bundle.
func (s *Service) Fetch(ctx context.Context, showID, exportID string) (*Bundle, error) {
	data, err := s.storage.GetExport(ctx, showID, exportID)
	if err != nil {
		return nil, fmt.Errorf("load export: %w", err)
	}
	bundle := &Bundle{}
	if err := json.Unmarshal(data, bundle); err != nil {
		return nil, fmt.Errorf("decode export bundle: %w", err)
	}
	return bundle, nil
}
