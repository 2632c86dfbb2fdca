package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "tradecore/internal/core/context"
	"tradecore/internal/core/id"
	"tradecore/internal/domain/derivation"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// Compile-time check that AuditService implements derivation.AuditRecorder.
var _ derivation.AuditRecorder = (*AuditService)(nil)

// AuditRecord is the stored shape of one derivation audit entry.
type AuditRecord struct {
	ID                id.ID           `db:"id" json:"id"`
	DocumentType      string          `db:"document_type" json:"documentType"`
	DocumentID        id.ID           `db:"document_id" json:"documentId"`
	DocumentNumber    string          `db:"document_number" json:"documentNumber"`
	UserID            string          `db:"user_id" json:"userId,omitempty"`
	Payload           json.RawMessage `db:"payload" json:"payload,omitempty"`
	PayloadCompressed []byte          `db:"payload_compressed" json:"-"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo" json:"-"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
}

// auditPayload is the JSON body: everything a reviewer needs to
// reconstruct how a document was derived.
type auditPayload struct {
	SourceRefs derivation.Refs      `json:"source_refs"`
	Warnings   []derivation.Warning `json:"warnings,omitempty"`
}

// AuditService records the derivation audit trail. Large payloads are
// zstd-compressed before storage.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes
}

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024, // 10KB
	}, nil
}

// RecordDerivation writes one derivation audit entry.
func (s *AuditService) RecordDerivation(ctx context.Context, entry derivation.AuditEntry) error {
	payload, err := json.Marshal(auditPayload{
		SourceRefs: entry.SourceRefs,
		Warnings:   entry.Warnings,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	rec := AuditRecord{
		ID:              id.New(),
		DocumentType:    string(entry.DocumentType),
		DocumentID:      entry.DocumentID,
		DocumentNumber:  entry.DocumentNumber,
		UserID:          appctx.GetActorID(ctx),
		Payload:         payload,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}

	if len(payload) > s.compressThreshold {
		rec.PayloadCompressed = s.encoder.EncodeAll(payload, nil)
		rec.Payload = nil
		rec.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO sys_derivation_audit (
			id, document_type, document_id, document_number, user_id,
			payload, payload_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	querier := s.txManager.GetQuerier(ctx)
	_, err = querier.Exec(ctx, sql,
		rec.ID, rec.DocumentType, rec.DocumentID, rec.DocumentNumber, rec.UserID,
		rec.Payload, rec.PayloadCompressed, rec.CompressionAlgo, rec.CreatedAt,
	)
	return err
}

// DocumentHistory retrieves the audit trail for a derived document,
// newest first, with compressed payloads inflated.
func (s *AuditService) DocumentHistory(ctx context.Context, documentID id.ID, limit int) ([]AuditRecord, error) {
	sql := `
		SELECT id, document_type, document_id, document_number, user_id,
			   payload, payload_compressed, compression_algo, created_at
		FROM sys_derivation_audit
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var records []AuditRecord
	for rows.Next() {
		var r AuditRecord
		err := rows.Scan(
			&r.ID, &r.DocumentType, &r.DocumentID, &r.DocumentNumber, &r.UserID,
			&r.Payload, &r.PayloadCompressed, &r.CompressionAlgo, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}

		if r.CompressionAlgo == CompressionZstd && len(r.PayloadCompressed) > 0 {
			inflated, err := s.decoder.DecodeAll(r.PayloadCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress audit payload: %w", err)
			}
			r.Payload = inflated
			r.PayloadCompressed = nil
		}

		records = append(records, r)
	}

	return records, rows.Err()
}
