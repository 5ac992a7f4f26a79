package safe

import (
	"github.com/RWACH777/yasa-tasker-sub000/logger"
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
)

// Go starts a goroutine that recovers from panic, so a misbehaving
// subscription callback or poller cannot crash the whole process.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("goroutine panic recovered: %v", errs.ErrPanic(r))
			}
		}()
		f()
	}()
}
