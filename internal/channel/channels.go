package channel

import (
	"context"
	"sync"

	"voyageflow/logger"
	"voyageflow/models"
)

type ChannelStats struct {
	ArchiveSent    int64
	ArchiveDropped int64
}

// Channels carries dataset snapshots from the ingestion pipeline to the
// archive writer. Sends never block: the archive is best-effort and a full
// buffer means the snapshot is dropped and counted, not queued.
type Channels struct {
	Archive chan models.DatasetSnapshot

	stats      ChannelStats
	statsMutex sync.RWMutex
	log        *logger.Log
}

func NewChannels(archiveBufferSize int) *Channels {
	log := logger.GetLogger()
	c := &Channels{
		Archive: make(chan models.DatasetSnapshot, archiveBufferSize),
		log:     log,
	}

	log.WithComponent("channels").WithFields(logger.Fields{
		"archive_buffer_size": archiveBufferSize,
	}).Info("channels initialized")

	return c
}

func (c *Channels) Close() {
	close(c.Archive)
	c.log.WithComponent("channels").Info("channels closed")
}

// SendArchive offers a snapshot to the archive writer. Reports whether it was
// accepted.
func (c *Channels) SendArchive(ctx context.Context, snap models.DatasetSnapshot) bool {
	select {
	case c.Archive <- snap:
		c.statsMutex.Lock()
		c.stats.ArchiveSent++
		c.statsMutex.Unlock()
		logger.RecordChannelMessage("archive", len(snap.Records))
		return true
	case <-ctx.Done():
		return false
	default:
		c.statsMutex.Lock()
		c.stats.ArchiveDropped++
		c.statsMutex.Unlock()
		c.log.WithComponent("channels").WithFields(logger.Fields{
			"snapshot_id": snap.SnapshotID,
		}).Warn("archive channel full, dropping snapshot")
		return false
	}
}

func (c *Channels) GetStats() ChannelStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}
