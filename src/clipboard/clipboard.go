package clipboard

import (
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

var (
	writeMu  sync.Mutex
	initOnce sync.Once
	initErr  error
)

// Init prepares the system clipboard. Write calls it on first use.
func Init() error {
	initOnce.Do(func() { initErr = clipboard.Init() })
	return initErr
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func Write(text string) error {
	if err := Init(); err != nil {
		return fmt.Errorf("clipboard unavailable: %w", err)
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}
