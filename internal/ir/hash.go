package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with old journals.
const (
	DomainRecord     = "weft/record/v1"
	DomainCollection = "weft/collection/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RecordHash computes the content hash of a single record. Two records with
// the same fields hash identically regardless of map iteration order.
func RecordHash(rec Record) (string, error) {
	canonical, err := MarshalCanonical(rec)
	if err != nil {
		return "", fmt.Errorf("RecordHash: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// CollectionHash computes the content hash of an ordered collection.
// Order matters: the same records in a different order hash differently.
func CollectionHash(name string, records []Record) (string, error) {
	canonical, err := MarshalCanonical(IRObject{
		"name":    IRString(name),
		"records": toArray(records),
	})
	if err != nil {
		return "", fmt.Errorf("CollectionHash: %w", err)
	}
	return hashWithDomain(DomainCollection, canonical), nil
}

// KeyOf returns the canonical string form of a record's identity key.
// ok is false when the field is absent or null.
func KeyOf(rec Record, field string) (key string, ok bool) {
	v, exists := rec[field]
	if !exists {
		return "", false
	}
	if _, isNull := v.(IRNull); isNull {
		return "", false
	}
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", false
	}
	return string(data), true
}

func toArray(records []Record) IRArray {
	arr := make(IRArray, len(records))
	for i, rec := range records {
		arr[i] = rec
	}
	return arr
}
