package model

import "github.com/google/uuid"

// ValidateID はIDがUUID形式であることを検証する。不正な場合はINVALID_IDエラーを返す。
func ValidateID(field, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return NewInvalidIDError(field, value)
	}
	return nil
}
