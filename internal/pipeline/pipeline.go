package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"net/http"

	"github.com/google/uuid"

	"sketchrender/internal/cache"
	"sketchrender/internal/domain"
	"sketchrender/internal/imaging"
	"sketchrender/internal/infra"
	"sketchrender/internal/providers/render"
	"sketchrender/internal/storage"
)

// Cache is the slice of the render cache the pipeline needs. Get reports a
// miss with cache.ErrMiss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
}

// Options wires a Pipeline. Cache may be nil, which disables caching.
type Options struct {
	Logger     infra.Logger
	Jobs       domain.JobRepository
	Assets     domain.AssetRepository
	Store      storage.Store
	Cache      Cache
	Generators map[string]render.Generator
	// DefaultProvider is used when a job does not name one.
	DefaultProvider string
	Clean           imaging.CleanOptions
	// MaskSource applies when the job leaves it empty.
	MaskSource  domain.MaskSource
	JPEGQuality int
	WebPQuality float32
}

// Pipeline executes one render job end to end: binarize the sketch, obtain a
// photorealistic render from the configured vendor, multiply the line work
// back over it, and persist every intermediate artifact.
type Pipeline struct {
	logger          infra.Logger
	jobs            domain.JobRepository
	assets          domain.AssetRepository
	store           storage.Store
	cache           Cache
	generators      map[string]render.Generator
	defaultProvider string
	clean           imaging.CleanOptions
	maskSource      domain.MaskSource
	jpegQuality     int
	webpQuality     float32
}

// New validates the wiring and returns a ready Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Jobs == nil || opts.Assets == nil {
		return nil, errors.New("pipeline: repositories are required")
	}
	if opts.Store == nil {
		return nil, errors.New("pipeline: store is required")
	}
	if len(opts.Generators) == 0 {
		return nil, errors.New("pipeline: at least one generator is required")
	}
	defaultProvider := opts.DefaultProvider
	if defaultProvider == "" {
		for name := range opts.Generators {
			defaultProvider = name
			break
		}
	}
	if _, ok := opts.Generators[defaultProvider]; !ok {
		return nil, fmt.Errorf("pipeline: default provider %q is not configured", defaultProvider)
	}
	maskSource := opts.MaskSource
	if maskSource == "" {
		maskSource = domain.MaskSourceCleaned
	}
	if !domain.ValidMaskSource(maskSource) {
		return nil, fmt.Errorf("pipeline: unknown mask source %q", maskSource)
	}
	return &Pipeline{
		logger:          opts.Logger,
		jobs:            opts.Jobs,
		assets:          opts.Assets,
		store:           opts.Store,
		cache:           opts.Cache,
		generators:      opts.Generators,
		defaultProvider: defaultProvider,
		clean:           opts.Clean,
		maskSource:      maskSource,
		jpegQuality:     opts.JPEGQuality,
		webpQuality:     opts.WebPQuality,
	}, nil
}

// Run processes a claimed job. The caller owns status transitions; Run only
// reports success or failure.
func (p *Pipeline) Run(ctx context.Context, job *domain.RenderJob) error {
	sketchAsset, err := p.assets.GetByID(ctx, job.SketchAssetID)
	if err != nil {
		return fmt.Errorf("load sketch asset: %w", err)
	}
	sketchBytes, err := p.store.Read(ctx, sketchAsset.StorageKey)
	if err != nil {
		return fmt.Errorf("read sketch %s: %w", sketchAsset.StorageKey, err)
	}
	sketchImg, err := imaging.Decode(bytes.NewReader(sketchBytes))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSketch, err)
	}

	cleaned, err := imaging.Clean(sketchImg, p.clean)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSketch, err)
	}
	var cleanedPNG bytes.Buffer
	if err := imaging.EncodePNG(&cleanedPNG, cleaned); err != nil {
		return err
	}
	cleanedAsset, err := p.storeArtifact(ctx, job, domain.AssetKindCleaned, "cleaned.png", "image/png", cleanedPNG.Bytes(), cleaned.Bounds())
	if err != nil {
		return err
	}

	generator, err := p.generatorFor(job.Provider)
	if err != nil {
		return err
	}
	prompt := render.BuildPrompt(job.Prompt, job.Locale)
	size := render.SizeForAspect(job.AspectRatio)

	renderBytes, renderMIME, fromCache, err := p.obtainRender(ctx, job, generator, prompt, size, cleanedPNG.Bytes(), cleanedAsset.StorageKey)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	renderImg, err := imaging.Decode(bytes.NewReader(renderBytes))
	if err != nil {
		return fmt.Errorf("%w: undecodable render: %v", domain.ErrProviderFailure, err)
	}
	if _, err := p.storeArtifact(ctx, job, domain.AssetKindRender, "render"+extFor(renderMIME), renderMIME, renderBytes, renderImg.Bounds()); err != nil {
		return err
	}

	var mask image.Image = cleaned
	if p.maskSourceFor(job) == domain.MaskSourceOriginal {
		mask = sketchImg
	}
	composite, err := imaging.Composite(renderImg, mask)
	if err != nil {
		return fmt.Errorf("composite: %w", err)
	}

	var jpegBuf bytes.Buffer
	if err := imaging.EncodeJPEG(&jpegBuf, composite, p.jpegQuality); err != nil {
		return err
	}
	if _, err := p.storeArtifact(ctx, job, domain.AssetKindComposite, "composite.jpg", "image/jpeg", jpegBuf.Bytes(), composite.Bounds()); err != nil {
		return err
	}

	var webpBuf bytes.Buffer
	if err := imaging.EncodeWebP(&webpBuf, composite, p.webpQuality); err != nil {
		return err
	}
	if _, err := p.storeArtifact(ctx, job, domain.AssetKindPreview, "preview.webp", "image/webp", webpBuf.Bytes(), composite.Bounds()); err != nil {
		return err
	}

	p.logger.Info().
		Str("job_id", job.ID).
		Str("provider", generator.Name()).
		Bool("cache_hit", fromCache).
		Int("composite_bytes", jpegBuf.Len()).
		Msg("pipeline: job rendered")
	return nil
}

// obtainRender returns the raw render bytes, consulting the cache first so
// identical inputs never trigger a second vendor call.
func (p *Pipeline) obtainRender(ctx context.Context, job *domain.RenderJob, generator render.Generator, prompt string, size render.Size, cleanedPNG []byte, cleanedKey string) ([]byte, string, bool, error) {
	key := cache.Key(cleanedPNG, prompt, size.Token(), generator.Name())
	if p.cache != nil {
		if data, err := p.cache.Get(ctx, key); err == nil {
			// The cache holds raw provider bytes in whatever format the
			// vendor produced; sniff instead of assuming.
			return data, http.DetectContentType(data), true, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			p.logger.Warn().Err(err).Str("job_id", job.ID).Msg("pipeline: cache lookup failed")
		}
	}

	result, err := generator.Generate(ctx, render.Request{
		Prompt:         prompt,
		NegativePrompt: job.NegativePrompt,
		AspectRatio:    job.AspectRatio,
		SketchData:     cleanedPNG,
		SketchMIME:     "image/png",
		SketchURL:      p.store.URL(cleanedKey),
		RequestID:      job.ID,
		Locale:         job.Locale,
	})
	if err != nil {
		return nil, "", false, err
	}
	if p.cache != nil {
		if err := p.cache.Set(ctx, key, result.Data); err != nil {
			p.logger.Warn().Err(err).Str("job_id", job.ID).Msg("pipeline: cache store failed")
		}
	}
	mime := result.MIME
	if mime == "" {
		mime = "image/png"
	}
	return result.Data, mime, false, nil
}

func (p *Pipeline) generatorFor(provider string) (render.Generator, error) {
	if provider == "" {
		provider = p.defaultProvider
	}
	generator, ok := p.generators[provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidRequest, provider)
	}
	return generator, nil
}

func (p *Pipeline) maskSourceFor(job *domain.RenderJob) domain.MaskSource {
	if domain.ValidMaskSource(job.MaskSource) {
		return job.MaskSource
	}
	return p.maskSource
}

func (p *Pipeline) storeArtifact(ctx context.Context, job *domain.RenderJob, kind domain.AssetKind, filename, mime string, data []byte, bounds image.Rectangle) (*domain.Asset, error) {
	key, err := p.store.Write(ctx, fmt.Sprintf("jobs/%s/%s", job.ID, filename), data)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", kind, err)
	}
	sum := sha256.Sum256(data)
	asset := &domain.Asset{
		ID:         uuid.NewString(),
		JobID:      job.ID,
		UserID:     job.UserID,
		Kind:       kind,
		StorageKey: key,
		MIME:       mime,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Bytes:      int64(len(data)),
		Checksum:   hex.EncodeToString(sum[:]),
	}
	if err := p.assets.Create(ctx, asset); err != nil {
		return nil, fmt.Errorf("persist %s asset: %w", kind, err)
	}
	return asset, nil
}

func extFor(mime string) string {
	switch mime {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
