// Package pipeline runs one ad-creation job end to end: validation, settings,
// asset resolution, strategy selection, upload, transcode wait, payload
// construction and submission, reporting progress to the job registry and
// releasing transient resources on every exit path.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fpang/meta-ad-uploader/internal/assets"
	"github.com/fpang/meta-ad-uploader/internal/cleanup"
	"github.com/fpang/meta-ad-uploader/internal/creative"
	"github.com/fpang/meta-ad-uploader/internal/mediaprobe"
	"github.com/fpang/meta-ad-uploader/internal/metaads"
	"github.com/fpang/meta-ad-uploader/internal/metrics"
	"github.com/fpang/meta-ad-uploader/internal/progress"
	"github.com/fpang/meta-ad-uploader/internal/settings"
	"github.com/fpang/meta-ad-uploader/internal/strategy"
	"github.com/fpang/meta-ad-uploader/internal/submit"
	"github.com/fpang/meta-ad-uploader/internal/transcode"
)

// totalSteps is reported on the job for clients that render a step counter.
const totalSteps = 8

// Progress checkpoints. Per-asset steps are spread between the bounds.
const (
	pctValidate   = 5
	pctSettings   = 10
	pctResolve    = 15
	pctUploadFrom = 20
	pctUploadTo   = 65
	pctWaitFrom   = 65
	pctWaitTo     = 85
	pctThumbnails = 85
	pctBuild      = 88
	pctSubmit     = 90
)

// Platform is the ad platform surface a job needs. *metaads.Client satisfies it.
type Platform interface {
	AdSet(ctx context.Context, adSetID string) (*metaads.AdSet, error)
	UploadImage(ctx context.Context, accountID string, up metaads.Upload) (*metaads.Image, error)
	UploadVideo(ctx context.Context, accountID string, up metaads.Upload) (string, error)
	UploadVideoFromURL(ctx context.Context, accountID, name, fileURL string) (string, error)
	VideoThumbnails(ctx context.Context, videoID string) ([]metaads.Thumbnail, error)
	transcode.StatusChecker
	submit.Platform
}

// PlatformFactory returns a platform client acting with the caller's token.
type PlatformFactory func(accessToken string) Platform

// Prober measures media dimensions. *mediaprobe.Prober satisfies it.
type Prober interface {
	Dimensions(ctx context.Context, src mediaprobe.Source) (mediaprobe.Dimensions, error)
}

// Deps are the collaborators of a Runner.
type Deps struct {
	Registry  *progress.Registry
	Platforms PlatformFactory
	Settings  settings.Store
	Resolver  *assets.Resolver
	Prober    Prober
	// Remover deletes transient bucket objects. Nil disables object cleanup.
	Remover cleanup.ObjectRemover
}

// Config tunes timing. Zero values fall back to defaults.
type Config struct {
	TranscodeInterval time.Duration
	TranscodeTimeout  time.Duration
	Submit            submit.Policy
	JobTimeout        time.Duration
}

// DefaultJobTimeout bounds a whole job.
const DefaultJobTimeout = 15 * time.Minute

// Runner executes jobs. It is safe for concurrent use; each Run owns its job.
type Runner struct {
	deps Deps
	cfg  Config

	inflight sync.WaitGroup
}

// NewRunner creates a Runner.
func NewRunner(deps Deps, cfg Config) *Runner {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}
	if cfg.Submit.Attempts == 0 {
		cfg.Submit = submit.DefaultPolicy()
	}
	if deps.Settings == nil {
		deps.Settings = settings.Static{}
	}
	return &Runner{deps: deps, cfg: cfg}
}

// job is the mutable state of one Run.
type job struct {
	req      Request
	platform Platform
	cleanup  *cleanup.Set
	logger   zerolog.Logger

	strategy strategy.Strategy
	assets   int
	videos   int
}

// Run executes the job described by req and blocks until it finishes.
// The job is registered under req.JobID; progress, completion and failure
// are published to the registry. The returned error carries the cause; use
// UserMessage for the client-facing text.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	r.inflight.Add(1)
	defer r.inflight.Done()

	start := time.Now()
	if _, err := r.deps.Registry.StartJob(req.JobID, totalSteps, progress.DefaultStartMessage); err != nil {
		return nil, err
	}

	logger := log.With().Str("jobId", req.JobID).Str("adAccountId", req.AdAccountID).Logger()
	j := &job{
		req:     req,
		cleanup: cleanup.New(r.deps.Remover, &logger),
		logger:  logger,
	}
	trackInputs(j.cleanup, req)
	defer j.cleanup.Run(context.WithoutCancel(ctx))

	ctx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout)
	defer cancel()

	logger.Info().Int("assets", req.Assets.Count()).Msg("Ad creation job started")

	res, err := r.run(ctx, j)
	outcome := metrics.JobOutcome{
		Strategy: string(j.strategy),
		Duration: time.Since(start),
		Assets:   j.assets,
		Videos:   j.videos,
		JobID:    req.JobID,
	}
	if err != nil {
		msg := UserMessage(err)
		r.deps.Registry.ErrorJob(req.JobID, msg)
		logger.Error().Err(err).Str("userMessage", msg).Dur("duration", outcome.Duration).Msg("Ad creation job failed")
		outcome.Status = string(progress.StatusError)
		metrics.RecordJob(outcome)
		return nil, err
	}

	r.deps.Registry.CompleteJob(req.JobID, progress.DefaultCompleteMessage)
	logger.Info().
		Str("adId", res.AdID).
		Str("strategy", string(res.Strategy)).
		Dur("duration", outcome.Duration).
		Msg("Ad creation job complete")
	outcome.Status = string(progress.StatusComplete)
	metrics.RecordJob(outcome)
	return res, nil
}

// Drain blocks until every running job has returned and released its
// resources, or until ctx is done. Callers stop accepting requests first and
// cancel the jobs' contexts when they must not run to completion.
func (r *Runner) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// trackInputs registers everything the client handed us so that it is
// released even when the job fails before resolution.
func trackInputs(set *cleanup.Set, req Request) {
	for _, f := range req.Assets.Files {
		set.TrackFile(f.Path)
	}
	for _, o := range req.Assets.Objects {
		set.TrackObject(o.Key)
	}
	if req.Thumbnail != nil {
		set.TrackFile(req.Thumbnail.Path)
	}
}

func (r *Runner) report(j *job, percent int, message string) {
	r.deps.Registry.SetProgress(j.req.JobID, percent, message)
}

func (r *Runner) run(ctx context.Context, j *job) (*Result, error) {
	req := j.req

	r.report(j, pctValidate, progress.Message(progress.StepValidation, ""))
	if err := req.validate(); err != nil {
		return nil, err
	}
	j.platform = r.deps.Platforms(req.AccessToken)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.report(j, pctSettings, progress.Message(progress.StepSettings, ""))
	acct, err := r.deps.Settings.AccountSettings(ctx, req.UserID, req.AdAccountID)
	if err != nil {
		return nil, fmt.Errorf("load account settings: %w", err)
	}
	in := req.withSettings(acct)

	adSet, err := j.platform.AdSet(ctx, in.AdSetID)
	if err != nil {
		return nil, fmt.Errorf("load ad set: %w", err)
	}
	j.strategy = strategy.Select(strategy.Inputs{
		Carousel:     req.Carousel,
		Placement:    req.Placement,
		AdSetDynamic: adSet.IsDynamicCreative,
	})
	j.logger = j.logger.With().Str("strategy", string(j.strategy)).Logger()
	if err := strategy.Validate(j.strategy, req.Assets.Count()); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resolveMsg := progress.Message(progress.StepResolve, "")
	if n := len(req.Assets.Drive); n > 0 {
		resolveMsg = progress.Message(progress.StepDriveDownload, fmt.Sprintf("%d file(s)", n))
	}
	r.report(j, pctResolve, resolveMsg)
	descs, err := r.deps.Resolver.Resolve(ctx, req.Assets, j.cleanup)
	if err != nil {
		return nil, err
	}
	j.assets = len(descs)

	var aspects []mediaprobe.Aspect
	if j.strategy == strategy.PlacementCustomized {
		if aspects, err = r.probeAspects(ctx, descs); err != nil {
			return nil, err
		}
	}

	uploaded, err := r.uploadAll(ctx, j, descs, aspects)
	if err != nil {
		return nil, err
	}

	if err := r.prepareVideos(ctx, j, uploaded); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.report(j, pctBuild, progress.Message(progress.StepAdCreation, in.AdName))
	spec, err := creative.Build(j.strategy, in, uploaded, req.Carousel)
	if err != nil {
		return nil, err
	}

	r.report(j, pctSubmit, progress.Message(progress.StepAdCreation, in.AdName))
	policy := r.cfg.Submit
	policy.OnRetry = func(attempt int, err error) {
		r.report(j, pctSubmit, progress.Message(progress.StepRetry, fmt.Sprintf("attempt %d of %d", attempt+1, policy.Attempts)))
	}
	sub, err := submit.NewSubmitter(j.platform, policy).Submit(ctx, req.AdAccountID, spec)
	if err != nil {
		return nil, err
	}

	return &Result{
		JobID:      req.JobID,
		AdID:       sub.AdID,
		CreativeID: sub.CreativeID,
		Strategy:   sub.Strategy,
	}, nil
}

func (r *Runner) probeAspects(ctx context.Context, descs []assets.Descriptor) ([]mediaprobe.Aspect, error) {
	if r.deps.Prober == nil {
		return nil, fmt.Errorf("placement customization needs a media prober")
	}
	aspects := make([]mediaprobe.Aspect, len(descs))
	for i, d := range descs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dims, err := r.deps.Prober.Dimensions(ctx, mediaprobe.Source{Kind: d.Kind, Path: d.Path, URL: d.URL})
		if err != nil {
			return nil, strategy.Invalid("mediaFiles", "could not read the dimensions of %s: %v", d.Name, err)
		}
		a, err := mediaprobe.Categorize(d.Kind, dims)
		if err != nil {
			return nil, strategy.Invalid("mediaFiles", "%s: %v", d.Name, err)
		}
		aspects[i] = a
	}
	if err := strategy.ValidateAspects(aspects); err != nil {
		return nil, err
	}
	return aspects, nil
}
