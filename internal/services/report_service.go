package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/singleflight"

	"pedidos/internal/aggregator"
	"pedidos/internal/cache"
	"pedidos/internal/core"
	"pedidos/internal/ingest"
	applog "pedidos/internal/log"
	"pedidos/internal/sheets"
)

var ErrUploadNotFound = errors.New("upload not found or expired")

// Upload is a file handed over by the presentation layer.
type Upload struct {
	Name string
	Data []byte
}

// Selection carries the year choice of the caller. A nil Years selects every
// year present in the upload; a non-nil empty slice selects none.
type Selection struct {
	Years *[]int
}

// AllYears is the default selection.
func AllYears() Selection { return Selection{} }

// OnlyYears selects exactly the given years. With no arguments it selects none.
func OnlyYears(years ...int) Selection {
	ys := append([]int{}, years...)
	return Selection{Years: &ys}
}

// Report is one aggregation result as served to clients.
type Report struct {
	ID        string            `json:"id"`
	UploadID  string            `json:"upload_id"`
	FileName  string            `json:"file_name"`
	Result    aggregator.Result `json:"result"`
	CreatedAt time.Time         `json:"created_at"`
	Cached    bool              `json:"cached"`
}

// ReportConfig holds the aggregation defaults and cache sizing.
type ReportConfig struct {
	Status          core.StatusPolicy
	Locale          string
	TopN            int
	DedupeByOrderID bool
	CacheSize       int
	CacheTTL        time.Duration
}

func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		Status:    core.DefaultStatusPolicy(),
		Locale:    core.LocalePtBR,
		TopN:      aggregator.DefaultTopN,
		CacheSize: 64,
		CacheTTL:  15 * time.Minute,
	}
}

type parsedUpload struct {
	id        string
	name      string
	orders    []core.Order
	available []int
}

// ReportService turns uploads into reports. Parsed uploads and results are
// cached so refiltering by year does not parse the file again.
type ReportService struct {
	cfg       ReportConfig
	uploads   *cache.LRUCache[*parsedUpload]
	results   *cache.LRUCache[Report]
	group     singleflight.Group
	recorder  sheets.RunRecorder
	publisher sheets.ReportPublisher
	logger    *applog.Logger
	events    *applog.StructuredLogger
	now       func() time.Time
	newID     func() string
}

// NewReportService wires the service. recorder and publisher may be nil.
func NewReportService(cfg ReportConfig, recorder sheets.RunRecorder, publisher sheets.ReportPublisher, logger *applog.Logger) *ReportService {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultReportConfig().CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultReportConfig().CacheTTL
	}
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentReport)
	return &ReportService{
		cfg:       cfg,
		uploads:   cache.NewLRUCache[*parsedUpload](cfg.CacheSize, cfg.CacheTTL),
		results:   cache.NewLRUCache[Report](cfg.CacheSize*4, cfg.CacheTTL),
		recorder:  recorder,
		publisher: publisher,
		logger:    logger,
		events:    applog.NewStructuredLogger(logger),
		now:       time.Now,
		newID:     func() string { return uuid.NewString() },
	}
}

// RegisterCaches hands the service caches to a cleanup manager.
func (s *ReportService) RegisterCaches(m *cache.Manager) {
	m.Register(s.uploads)
	m.Register(s.results)
}

// Generate parses an upload and aggregates it for the selection. Malformed
// files return a *core.MalformedInputError.
func (s *ReportService) Generate(ctx context.Context, up Upload, sel Selection) (Report, error) {
	sum := sha256.Sum256(up.Data)
	uploadID := hex.EncodeToString(sum[:])

	parsed, ok := s.uploads.Get(uploadID)
	if !ok || parsed.name != up.Name {
		v, err, _ := s.group.Do("parse:"+uploadID+":"+up.Name, func() (interface{}, error) {
			return s.parse(uploadID, up)
		})
		if err != nil {
			return Report{}, err
		}
		parsed = v.(*parsedUpload)
		s.uploads.Set(uploadID, parsed)
	}
	return s.report(ctx, parsed, sel)
}

// Refilter re-aggregates a previously uploaded file for another selection.
func (s *ReportService) Refilter(ctx context.Context, uploadID string, sel Selection) (Report, error) {
	parsed, ok := s.uploads.Get(uploadID)
	if !ok {
		return Report{}, ErrUploadNotFound
	}
	return s.report(ctx, parsed, sel)
}

func (s *ReportService) parse(uploadID string, up Upload) (*parsedUpload, error) {
	table, err := ingest.ReadAuto(up.Name, up.Data)
	if err != nil {
		return nil, err
	}
	orders, err := table.Orders()
	if err != nil {
		return nil, err
	}
	all := aggregator.Aggregate(orders, s.options(core.YearFilter{}))
	return &parsedUpload{
		id:        uploadID,
		name:      up.Name,
		orders:    orders,
		available: all.AvailableYears,
	}, nil
}

func (s *ReportService) options(years core.YearFilter) aggregator.Options {
	return aggregator.Options{
		Years:           years,
		Status:          s.cfg.Status,
		TopN:            s.cfg.TopN,
		Locale:          s.cfg.Locale,
		DedupeByOrderID: s.cfg.DedupeByOrderID,
	}
}

func (s *ReportService) report(ctx context.Context, p *parsedUpload, sel Selection) (Report, error) {
	years := p.available
	if sel.Years != nil {
		years = lo.Uniq(*sel.Years)
	}
	filter := core.Years(years...)
	key := s.cacheKey(p, filter)

	if cached, ok := s.results.Get(key); ok {
		cached.Cached = true
		return cached, nil
	}

	v, err, _ := s.group.Do("report:"+key, func() (interface{}, error) {
		if cached, ok := s.results.Get(key); ok {
			cached.Cached = true
			return cached, nil
		}
		rep := Report{
			ID:        s.newID(),
			UploadID:  p.id,
			FileName:  p.name,
			Result:    aggregator.Aggregate(p.orders, s.options(filter)),
			CreatedAt: s.now().UTC(),
		}
		s.results.Set(key, rep)
		s.afterGenerate(context.WithoutCancel(ctx), p, rep)
		return rep, nil
	})
	if err != nil {
		return Report{}, err
	}
	return v.(Report), nil
}

func (s *ReportService) cacheKey(p *parsedUpload, years core.YearFilter) string {
	ys := strings.Join(lo.Map(years.Sorted(), func(y int, _ int) string { return strconv.Itoa(y) }), ",")
	return strings.Join([]string{
		p.id,
		p.name,
		s.cfg.Status.String(),
		"years=" + ys,
		s.cfg.Locale,
		strconv.Itoa(s.cfg.TopN),
		strconv.FormatBool(s.cfg.DedupeByOrderID),
	}, "|")
}

// afterGenerate records the run and announces it. Failures are logged and
// never fail the report.
func (s *ReportService) afterGenerate(ctx context.Context, p *parsedUpload, rep Report) {
	res := rep.Result
	s.events.LogReportGenerated(ctx, rep.ID, rep.FileName, res.Diagnostics.RowsRead,
		res.OrderCount, res.TotalSpend.Cents, res.Diagnostics.ExcludedTotal())

	if s.recorder == nil {
		return
	}
	run := core.ReportRun{
		ID:           rep.ID,
		FileName:     rep.FileName,
		FileSHA256:   p.id,
		RowsRead:     res.Diagnostics.RowsRead,
		OrderCount:   res.OrderCount,
		TotalSpend:   res.TotalSpend,
		ExcludedRows: res.Diagnostics.ExcludedTotal(),
		Years:        res.SelectedYears,
		StatusPolicy: res.StatusPolicy,
		CreatedAt:    rep.CreatedAt,
	}
	if err := s.recorder.SaveRun(ctx, run); err != nil {
		s.events.LogError(ctx, "Failed to record report run", err, applog.ComponentStorage, applog.OpAppend,
			applog.LogFields{applog.FieldReportID: rep.ID})
		return
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishReportGenerated(ctx, run.ID); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish report generated message",
			applog.FieldReportID, run.ID,
			applog.FieldOperation, applog.OpPublish,
			applog.FieldError, err)
	}
}

// RecentRuns lists the run history when the backend can read it.
func (s *ReportService) RecentRuns(ctx context.Context, limit int) ([]core.ReportRun, error) {
	reader, ok := s.recorder.(sheets.RunReader)
	if !ok {
		return []core.ReportRun{}, nil
	}
	runs, err := reader.ListRecentRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	return runs, nil
}

// Stats exposes cache counters for diagnostics.
func (s *ReportService) Stats() (uploads, results cache.Stats) {
	return s.uploads.Stats(), s.results.Stats()
}
