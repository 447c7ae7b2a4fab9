package progress

// Observer receives download lifecycle callbacks from the orchestrator.
// Units are individual file transfers; folder exploration only surfaces
// through OnTotalCountChanged as the expected file count grows.
type Observer interface {
	// OnUnitStarted is called when a file transfer acquires a slot and
	// begins moving bytes. size is -1 when the remote does not report one
	// (exported documents).
	OnUnitStarted(fileID, name, localPath string, size int64)

	// OnUnitProgress reports cumulative bytes for an in-flight transfer.
	// Byte counts for a single file are non-decreasing.
	OnUnitProgress(fileID string, bytes int64)

	// OnUnitFinished is called exactly once per started unit. err is nil on
	// success, the unit's terminal error otherwise.
	OnUnitFinished(fileID string, err error)

	// OnTotalCountChanged reports growth of the expected file count as
	// folders are expanded.
	OnTotalCountChanged(total int)
}

// NopObserver discards all callbacks.
type NopObserver struct{}

func (NopObserver) OnUnitStarted(fileID, name, localPath string, size int64) {}
func (NopObserver) OnUnitProgress(fileID string, bytes int64)                {}
func (NopObserver) OnUnitFinished(fileID string, err error)                  {}
func (NopObserver) OnTotalCountChanged(total int)                            {}

// MultiObserver fans callbacks out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnUnitStarted(fileID, name, localPath string, size int64) {
	for _, o := range m {
		o.OnUnitStarted(fileID, name, localPath, size)
	}
}

func (m MultiObserver) OnUnitProgress(fileID string, bytes int64) {
	for _, o := range m {
		o.OnUnitProgress(fileID, bytes)
	}
}

func (m MultiObserver) OnUnitFinished(fileID string, err error) {
	for _, o := range m {
		o.OnUnitFinished(fileID, err)
	}
}

func (m MultiObserver) OnTotalCountChanged(total int) {
	for _, o := range m {
		o.OnTotalCountChanged(total)
	}
}
