package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rankforge/core/internal/modules/system/configs"
)

const (
	archiveRootDir      = "rankforge"
	archiveDBDir        = archiveRootDir + "/db"
	archiveManifestFile = archiveRootDir + "/manifest.json"
	archiveFormat       = "rankforge-bson"
	archiveVersion      = 1

	defaultObjectKeyTemplate = "archives/{Y}/{m}/{filename}"
)

// archiveTableNames lists what an export carries. Sessions and credentials
// stay out on purpose; archives may leave the box.
var archiveTableNames = []string{
	"products",
	"keyword_sets",
	"generation_records",
	"options",
}

type manifest struct {
	Format    string    `json:"format"`
	Version   int       `json:"version"`
	Engine    string    `json:"engine"`
	CreatedAt time.Time `json:"created_at"`
	Tables    []string  `json:"tables"`
}

// Item is one archive file on disk.
type Item struct {
	Filename string `json:"filename"`
	Size     string `json:"size"`
}

// Artifact describes a freshly created archive.
type Artifact struct {
	Filename string `json:"filename"`
	Size     string `json:"size"`
	S3URL    string `json:"s3_url,omitempty"`

	payload []byte
}

// Service exports catalog, discovery, generation, and options rows as
// BSON inside a zip, keeps the zips in the archive directory, and pushes
// them to S3 when configured.
type Service struct {
	db     *gorm.DB
	cfgSvc *configs.Service
	dir    string
	logger *zap.Logger
}

func NewService(db *gorm.DB, cfgSvc *configs.Service, dir string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, cfgSvc: cfgSvc, dir: dir, logger: logger.Named("ArchiveService")}
}

// Create builds an archive zip and writes it into the archive directory.
func (s *Service) Create(now time.Time) (*Artifact, error) {
	tables, engine := s.collectTables()
	buf, err := buildArchiveZip(tables, engine, now)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, err
	}
	filename := fmt.Sprintf("archive-%s.zip", now.Format("2006-01-02T15-04-05"))
	if err := os.WriteFile(filepath.Join(s.dir, filename), buf.Bytes(), 0o644); err != nil {
		return nil, err
	}

	s.logger.Info("archive created",
		zap.String("filename", filename),
		zap.Int("bytes", buf.Len()))
	return &Artifact{
		Filename: filename,
		Size:     formatSize(int64(buf.Len())),
		payload:  buf.Bytes(),
	}, nil
}

// CreateAndUpload creates an archive and, when S3 is configured, uploads it
// under the configured key template.
func (s *Service) CreateAndUpload(ctx context.Context, now time.Time) (*Artifact, error) {
	cfg, err := s.cfgSvc.Get()
	if err != nil {
		return nil, err
	}

	artifact, err := s.Create(now)
	if err != nil {
		return nil, err
	}
	if !s3Configured(cfg.S3Options) {
		return artifact, nil
	}

	uploader, err := newS3Client(cfg.S3Options)
	if err != nil {
		return nil, err
	}
	key := renderObjectKey(cfg.ArchiveOptions.Path, artifact.Filename, now)
	url, err := uploader.Upload(ctx, key, artifact.payload, "application/zip")
	if err != nil {
		return nil, err
	}
	artifact.S3URL = url
	s.logger.Info("archive uploaded", zap.String("key", key))
	return artifact, nil
}

// RunDaily is the cron entry point. A disabled archive option makes it a
// no-op so the job can stay scheduled unconditionally.
func (s *Service) RunDaily(ctx context.Context) error {
	cfg, err := s.cfgSvc.Get()
	if err != nil {
		return err
	}
	if !cfg.ArchiveOptions.Enable {
		return nil
	}
	_, err = s.CreateAndUpload(ctx, time.Now())
	return err
}

// List returns the archive files on disk, never nil.
func (s *Service) List() []Item {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return []Item{}
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return []Item{}
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, Item{Filename: e.Name(), Size: formatSize(info.Size())})
	}
	return items
}

var errArchiveNotFound = errors.New("archive not found")

// Read loads one archive file by name.
func (s *Service) Read(filename string) ([]byte, error) {
	name, err := sanitizeFilename(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errArchiveNotFound
		}
		return nil, err
	}
	return data, nil
}

// Delete removes one archive file by name.
func (s *Service) Delete(filename string) error {
	name, err := sanitizeFilename(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		if os.IsNotExist(err) {
			return errArchiveNotFound
		}
		return err
	}
	return nil
}

func sanitizeFilename(raw string) (string, error) {
	name := strings.TrimSpace(filepath.Base(raw))
	if name == "" || name == "." || !strings.HasSuffix(name, ".zip") {
		return "", errors.New("invalid archive filename")
	}
	return name, nil
}

// collectTables reads every archived table best-effort; a table that fails
// to read is skipped rather than failing the whole export.
func (s *Service) collectTables() (map[string][]map[string]interface{}, string) {
	tables := make(map[string][]map[string]interface{}, len(archiveTableNames))
	for _, table := range archiveTableNames {
		var rows []map[string]interface{}
		if err := s.db.Table(table).Find(&rows).Error; err != nil {
			s.logger.Warn("archive table export skipped",
				zap.String("table", table), zap.Error(err))
			continue
		}
		tables[table] = rows
	}
	return tables, s.db.Dialector.Name()
}

// buildArchiveZip assembles the zip layout: one BSON stream per table plus
// a manifest describing the export.
func buildArchiveZip(tables map[string][]map[string]interface{}, engine string, now time.Time) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)

	exported := make([]string, 0, len(archiveTableNames))
	for _, table := range archiveTableNames {
		rows, ok := tables[table]
		if !ok {
			continue
		}
		payload, err := encodeBSONRows(rows)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", table, err)
		}
		f, err := w.Create(path.Join(archiveDBDir, table+".bson"))
		if err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if _, err := f.Write(payload); err != nil {
				return nil, err
			}
		}
		exported = append(exported, table)
	}

	manifestData, err := json.Marshal(manifest{
		Format:    archiveFormat,
		Version:   archiveVersion,
		Engine:    engine,
		CreatedAt: now.UTC(),
		Tables:    exported,
	})
	if err != nil {
		return nil, err
	}
	mf, err := w.Create(archiveManifestFile)
	if err != nil {
		return nil, err
	}
	if _, err := mf.Write(manifestData); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf, nil
}

func encodeBSONRows(rows []map[string]interface{}) ([]byte, error) {
	if len(rows) == 0 {
		return []byte{}, nil
	}
	buf := bytes.NewBuffer(nil)
	for _, row := range rows {
		doc := make(map[string]interface{}, len(row))
		for key, value := range row {
			doc[key] = normalizeArchiveValue(value)
		}
		b, err := bson.Marshal(doc)
		if err != nil {
			return nil, err
		}
		if _, err := buf.Write(b); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeBSONRows(payload []byte) ([]map[string]interface{}, error) {
	if len(payload) == 0 {
		return []map[string]interface{}{}, nil
	}
	rows := make([]map[string]interface{}, 0)
	cursor := 0
	for cursor < len(payload) {
		if cursor+4 > len(payload) {
			return nil, errors.New("invalid bson payload")
		}
		docLen := int(int32(binary.LittleEndian.Uint32(payload[cursor : cursor+4])))
		if docLen <= 0 || cursor+docLen > len(payload) {
			return nil, errors.New("invalid bson document length")
		}
		var row map[string]interface{}
		if err := bson.Unmarshal(payload[cursor:cursor+docLen], &row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
		cursor += docLen
	}
	return rows, nil
}

// normalizeArchiveValue makes driver values BSON-marshalable. MySQL returns
// text columns as []byte.
func normalizeArchiveValue(value interface{}) interface{} {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = normalizeArchiveValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(v))
		for _, item := range v {
			out = append(out, normalizeArchiveValue(item))
		}
		return out
	default:
		return value
	}
}

// renderObjectKey expands the configured key template. A template without
// {filename} names the object fully by itself.
func renderObjectKey(template, filename string, now time.Time) string {
	tpl := strings.TrimSpace(template)
	if tpl == "" {
		tpl = defaultObjectKeyTemplate
	}

	replacer := strings.NewReplacer(
		"{Y}", now.Format("2006"),
		"{m}", now.Format("01"),
		"{d}", now.Format("02"),
		"{H}", now.Format("15"),
		"{h}", now.Format("15"),
		"{i}", now.Format("04"),
		"{M}", now.Format("04"),
		"{s}", now.Format("05"),
		"{filename}", filename,
	)

	key := normalizeObjectKey(replacer.Replace(tpl))
	if key == "" {
		return filename
	}
	return key
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
