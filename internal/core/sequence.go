package core

import (
	"context"
	"fmt"
)

// SequenceAllocator issues gapless, prefixed document numbers per business and document type.
type SequenceAllocator interface {
	// NextNumber allocates in its own transaction. Use for standalone calls.
	NextNumber(ctx context.Context, sess Session, docType DocumentType) (string, error)
	// NextNumberTx allocates inside the caller's transaction, so a rollback
	// releases the number again. The caller must hold the business lock.
	NextNumberTx(ctx context.Context, tx Tx, sess Session, docType DocumentType) (string, error)
}

type sequenceAllocator struct {
	store  Store
	locker BusinessLocker
}

func NewSequenceAllocator(store Store, locker BusinessLocker) SequenceAllocator {
	return &sequenceAllocator{store: store, locker: locker}
}

func (s *sequenceAllocator) NextNumber(ctx context.Context, sess Session, docType DocumentType) (string, error) {
	unlock, err := lockBusiness(ctx, s.locker, sess)
	if err != nil {
		return "", err
	}
	defer unlock()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	number, err := s.NextNumberTx(ctx, tx, sess, docType)
	if err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit sequence allocation: %w", err)
	}
	return number, nil
}

func (s *sequenceAllocator) NextNumberTx(ctx context.Context, tx Tx, sess Session, docType DocumentType) (string, error) {
	if !docType.Valid() {
		return "", newValidationError("type", "unknown document type %q", docType)
	}
	prefix, err := resolvePrefix(ctx, tx, sess.BusinessID, docType)
	if err != nil {
		return "", err
	}
	n, err := tx.NextSequence(ctx, sess.BusinessID, string(docType))
	if err != nil {
		return "", fmt.Errorf("failed to generate sequence number for %s: %w", docType, err)
	}
	return FormatDocumentNumber(prefix, n), nil
}

// FormatDocumentNumber renders a counter value as e.g. INV00001.
func FormatDocumentNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s%05d", prefix, n)
}
