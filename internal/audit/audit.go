// Package audit records every mutating operation and every handled failure
// with the actor, action and entity involved.
package audit

import (
	"strconv"

	"github.com/Domenick1991/skybooking/internal/domain"
	"github.com/Domenick1991/skybooking/pkg/logger"
)

const SystemActor = "system"

// UserActor formats a user id for the actor field.
func UserActor(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// Recorder writes audit entries for one entity kind.
type Recorder struct {
	entity string
	log    logger.Logger
}

func NewRecorder(entity string, log logger.Logger) *Recorder {
	return &Recorder{entity: entity, log: log.With("entity", entity)}
}

// Record logs a finished operation. Expected failure classes are warnings with
// their code; everything else is an error carrying the full cause.
func (r *Recorder) Record(action, actor string, entityID int64, err error) {
	fields := []interface{}{"action", action, "actor", actor}
	if entityID != 0 {
		fields = append(fields, "entity_id", entityID)
	}

	if err == nil {
		r.log.Info(r.entity+" "+action, fields...)
		return
	}

	kind := domain.KindOf(err)
	fields = append(fields, "kind", kind.String(), "code", domain.CodeOf(err), "error", err.Error())
	switch kind {
	case domain.KindValidation, domain.KindConflict, domain.KindNotFound, domain.KindForbidden, domain.KindIntegrity:
		r.log.Warn(r.entity+" "+action+" rejected", fields...)
	default:
		r.log.Error(r.entity+" "+action+" failed", fields...)
	}
}

// Do runs fn and records its outcome. id extracts the entity id from a
// successful result; it may be nil.
func Do[T any](r *Recorder, action, actor string, id func(T) int64, fn func() (T, error)) (T, error) {
	res, err := fn()
	var entityID int64
	if err == nil && id != nil {
		entityID = id(res)
	}
	r.Record(action, actor, entityID, err)
	return res, err
}
