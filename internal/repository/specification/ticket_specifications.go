package specification

import "gorm.io/gorm"

type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

type ByTicketType struct {
	Type string
}

func (s ByTicketType) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("type = ?", s.Type)
}

type BySessionID struct {
	SessionID string
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

// ByTurnKey pins a lookup to one logical turn's ticket.
type ByTurnKey struct {
	TurnKey string
}

func (s ByTurnKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("turn_key = ?", s.TurnKey)
}
