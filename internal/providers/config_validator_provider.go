package providers

import (
	"fmt"
	"sitestatus/internal/structures"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return v.Errors
	}
	if !cv.conf.Storage.InMemory && cv.conf.Storage.Path == "" {
		return fmt.Errorf("storage.path is required unless storage.inMemory is set")
	}
	if cv.conf.Queue.Driver == "redis" && cv.conf.Queue.Redis.Addr == "" {
		return fmt.Errorf("queue.redis.addr is required for the redis queue driver")
	}
	if cv.conf.Snapshot.Enabled && cv.conf.Snapshot.FilePath == "" {
		return fmt.Errorf("snapshot.filePath is required when snapshots are enabled")
	}
	return nil
}
