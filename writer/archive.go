package writer

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	appconfig "voyageflow/config"
	"voyageflow/internal/metrics"
	"voyageflow/logger"
	"voyageflow/models"
)

// ParquetRecord is the row layout of an archived dataset snapshot.
type ParquetRecord struct {
	SnapshotID  string `parquet:"name=snapshot_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Filename    string `parquet:"name=filename, type=BYTE_ARRAY, convertedtype=UTF8"`
	IngestedAt  int64  `parquet:"name=ingested_at, type=INT64"`
	No          int32  `parquet:"name=no, type=INT32"`
	Status      string `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
	Vessel      string `parquet:"name=vessel, type=BYTE_ARRAY, convertedtype=UTF8"`
	Account     string `parquet:"name=account, type=BYTE_ARRAY, convertedtype=UTF8"`
	Cargo       string `parquet:"name=cargo, type=BYTE_ARRAY, convertedtype=UTF8"`
	Volume      string `parquet:"name=volume, type=BYTE_ARRAY, convertedtype=UTF8"`
	FreightRate string `parquet:"name=freight_rate, type=BYTE_ARRAY, convertedtype=UTF8"`
	Margin      string `parquet:"name=margin, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// memoryFileWriter implements ParquetFile interface for in-memory writing
type memoryFileWriter struct {
	buffer *bytes.Buffer
}

func newMemoryFileWriter() *memoryFileWriter {
	return &memoryFileWriter{
		buffer: &bytes.Buffer{},
	}
}

func (mfw *memoryFileWriter) Create(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Open(name string) (source.ParquetFile, error) {
	return mfw, nil
}

func (mfw *memoryFileWriter) Seek(offset int64, whence int) (int64, error) {
	return int64(mfw.buffer.Len()), nil
}

func (mfw *memoryFileWriter) Read(b []byte) (int, error) {
	return mfw.buffer.Read(b)
}

func (mfw *memoryFileWriter) Write(b []byte) (int, error) {
	return mfw.buffer.Write(b)
}

func (mfw *memoryFileWriter) Close() error {
	return nil
}

func (mfw *memoryFileWriter) Bytes() []byte {
	return mfw.buffer.Bytes()
}

type archiveWriter struct {
	config   *appconfig.Config
	archive  <-chan models.DatasetSnapshot
	s3Client *s3.Client
	ctx      context.Context
	wg       *sync.WaitGroup
	mu       sync.Mutex
	running  bool
	log      *logger.Log
}

// ArchiveWriter uploads every committed dataset snapshot to S3 as a parquet
// file. It is entirely optional; when S3 is disabled the rest of the system
// runs without it.
type ArchiveWriter = archiveWriter

func newArchiveWriter(cfg *appconfig.Config, archive <-chan models.DatasetSnapshot) (*archiveWriter, error) {
	log := logger.GetLogger()

	ctx := context.Background()

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Storage.S3.Region),
	}
	if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.Storage.S3.AccessKeyID,
				cfg.Storage.S3.SecretAccessKey,
				"",
			),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		log.WithComponent("archive_writer").WithError(err).Warn("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	creds, err := awsConfig.Credentials.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		return nil, fmt.Errorf("aws credentials not found")
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Storage.S3.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.S3.Endpoint)
		}
		o.UsePathStyle = cfg.Storage.S3.PathStyle
	})

	w := &archiveWriter{
		config:   cfg,
		archive:  archive,
		s3Client: s3Client,
		wg:       &sync.WaitGroup{},
		log:      log,
	}

	log.WithComponent("archive_writer").WithFields(logger.Fields{
		"bucket":     cfg.Storage.S3.Bucket,
		"region":     cfg.Storage.S3.Region,
		"endpoint":   cfg.Storage.S3.Endpoint,
		"path_style": cfg.Storage.S3.PathStyle,
	}).Info("archive writer initialized")

	return w, nil
}

// NewArchiveWriter constructs a new ArchiveWriter instance.
func NewArchiveWriter(cfg *appconfig.Config, archive <-chan models.DatasetSnapshot) (*ArchiveWriter, error) {
	return newArchiveWriter(cfg, archive)
}

func (w *archiveWriter) start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("archive writer already running")
	}
	w.running = true
	w.ctx = ctx
	w.mu.Unlock()

	log := w.log.WithComponent("archive_writer").WithFields(logger.Fields{"operation": "start"})

	numWorkers := w.config.Writer.MaxWorkers
	if numWorkers < 1 {
		numWorkers = 1
	}

	log.WithFields(logger.Fields{"workers": numWorkers}).Info("starting archive writer workers")

	for i := 0; i < numWorkers; i++ {
		w.wg.Add(1)
		go w.worker(i)
	}

	return nil
}

func (w *archiveWriter) stop() {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.log.WithComponent("archive_writer").Info("stopping archive writer")
	w.wg.Wait()
	w.log.WithComponent("archive_writer").Info("archive writer stopped")
}

func (w *archiveWriter) worker(workerID int) {
	defer w.wg.Done()

	log := w.log.WithComponent("archive_writer").WithFields(logger.Fields{
		"worker_id": workerID,
	})

	log.Info("starting archive writer worker")

	for {
		select {
		case <-w.ctx.Done():
			log.Info("worker stopped due to context cancellation")
			return
		case snap, ok := <-w.archive:
			if !ok {
				log.Info("archive channel closed, worker stopping")
				return
			}
			w.processSnapshot(snap)
		}
	}
}

func (w *archiveWriter) processSnapshot(snap models.DatasetSnapshot) {
	log := w.log.WithComponent("archive_writer").WithFields(logger.Fields{
		"snapshot_id":  snap.SnapshotID,
		"filename":     snap.Filename,
		"record_count": len(snap.Records),
		"operation":    "process_snapshot",
	})

	if len(snap.Records) == 0 {
		log.Debug("snapshot has no records, skipping")
		return
	}

	s3Key := buildArchiveKey(w.config.Storage.S3.Prefix, snap)
	log = log.WithFields(logger.Fields{"s3_key": s3Key})

	data, size, err := encodeParquet(snap, w.config.Writer.Compression)
	if err != nil {
		metrics.ArchiveSnapshots.WithLabelValues("error").Inc()
		log.WithError(err).Error("failed to create parquet file")
		return
	}

	if err := w.uploadToS3(s3Key, data); err != nil {
		metrics.ArchiveSnapshots.WithLabelValues("error").Inc()
		log.WithError(err).
			WithEnv("S3_BUCKET").
			WithFields(logger.Fields{"bucket": w.config.Storage.S3.Bucket}).
			Error("failed to upload to S3")
		return
	}

	metrics.ArchiveSnapshots.WithLabelValues("ok").Inc()
	logger.IncrementArchiveWrite(size)

	log.WithFields(logger.Fields{"file_size": size}).Info("snapshot archived")
}

func buildArchiveKey(prefix string, snap models.DatasetSnapshot) string {
	t := snap.IngestedAt.UTC()

	parts := []string{}
	if prefix != "" {
		parts = append(parts, prefix)
	}
	parts = append(parts,
		fmt.Sprintf("year=%04d", t.Year()),
		fmt.Sprintf("month=%02d", t.Month()),
		fmt.Sprintf("day=%02d", t.Day()),
	)

	filename := fmt.Sprintf("opportunities_%s_%s.parquet", t.Format("20060102150405"), snap.SnapshotID)
	key := filepath.Join(append(parts, filename)...)

	// Convert to forward slashes for S3
	return filepath.ToSlash(key)
}

func encodeParquet(snap models.DatasetSnapshot, compression string) ([]byte, int64, error) {
	fw := newMemoryFileWriter()

	pw, err := pqwriter.NewParquetWriter(fw, new(ParquetRecord), 4)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	switch compression {
	case "snappy":
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
	case "gzip":
		pw.CompressionType = parquet.CompressionCodec_GZIP
	case "lzo":
		pw.CompressionType = parquet.CompressionCodec_LZO
	default:
		pw.CompressionType = parquet.CompressionCodec_UNCOMPRESSED
	}

	ingested := snap.IngestedAt.UnixMilli()
	for _, r := range snap.Records {
		record := ParquetRecord{
			SnapshotID:  snap.SnapshotID,
			Filename:    snap.Filename,
			IngestedAt:  ingested,
			No:          int32(r.No),
			Status:      r.Status,
			Vessel:      r.Vessel,
			Account:     r.Account,
			Cargo:       r.Cargo,
			Volume:      r.Volume,
			FreightRate: r.FreightRate,
			Margin:      r.Margin,
		}

		if err := pw.Write(record); err != nil {
			pw.WriteStop()
			return nil, 0, fmt.Errorf("failed to write parquet record: %w", err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return nil, 0, fmt.Errorf("failed to finalize parquet writing: %w", err)
	}

	data := fw.Bytes()
	return data, int64(len(data)), nil
}

func (w *archiveWriter) uploadToS3(key string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":       "parquet",
			"compression":        w.config.Writer.Compression,
			"voyageflow-version": w.config.Voyageflow.Version,
		},
	}

	ctx := context.WithoutCancel(w.ctx)
	if _, err := w.s3Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", w.config.Storage.S3.Bucket, err)
	}
	return nil
}

// Start exposes the start method of archiveWriter.
func (w *ArchiveWriter) Start(ctx context.Context) error { return w.start(ctx) }

// Stop exposes the stop method of archiveWriter.
func (w *ArchiveWriter) Stop() { w.stop() }
