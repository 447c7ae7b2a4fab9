package download

import (
	"github.com/drivebridge/drivebridge/internal/events"
	"github.com/drivebridge/drivebridge/internal/progress"
)

// BusObserver republishes orchestrator callbacks on the event bus, for an
// embedding host that renders its own progress UI.
type BusObserver struct {
	bus *events.EventBus
}

var _ progress.Observer = (*BusObserver)(nil)

func NewBusObserver(bus *events.EventBus) *BusObserver {
	return &BusObserver{bus: bus}
}

func (b *BusObserver) OnUnitStarted(fileID, name, localPath string, size int64) {
	b.bus.PublishDownload(events.EventDownloadStarted, fileID, name, localPath, size, 0, nil)
}

func (b *BusObserver) OnUnitProgress(fileID string, bytes int64) {
	b.bus.PublishDownload(events.EventDownloadProgress, fileID, "", "", 0, bytes, nil)
}

func (b *BusObserver) OnUnitFinished(fileID string, err error) {
	if err != nil {
		b.bus.PublishDownload(events.EventDownloadFailed, fileID, "", "", 0, 0, err)
		return
	}
	b.bus.PublishDownload(events.EventDownloadCompleted, fileID, "", "", 0, 0, nil)
}

func (b *BusObserver) OnTotalCountChanged(total int) {
	b.bus.Publish(&events.BatchEvent{
		BaseEvent:  events.BaseEvent{EventType: events.EventBatchCountChanged},
		TotalFiles: total,
	})
}
