// Package jobs loads the batch job files for non-interactive captures.
//
// A job file looks like:
//
//	settle: 500ms
//	jobs:
//	  - url: https://example.com
//	    selection: {x: 0, y: 120, width: 1280, height: 4000}
//	  - url: https://example.com/app
//	    at: {x: 400, y: 300}
//	    selection: {x: 0, y: 0, width: 800, height: 3000}
//
// The selection is in device pixels of the document, "at" is a viewport point
// in CSS pixels used to find the scrolling element, the window is used if it's omitted.
package jobs

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/regionshot"
	"gopkg.in/yaml.v3"
)

// File of jobs
type File struct {
	// Settle overrides the settle delay of every job if not zero
	Settle time.Duration `yaml:"settle"`

	Jobs []*Job `yaml:"jobs"`
}

// Job captures one region of one page
type Job struct {
	URL       string               `yaml:"url"`
	Selection regionshot.Selection `yaml:"selection"`
	At        *regionshot.Point    `yaml:"at"`
}

// Load the job file
func Load(path string) (*File, error) {
	bin, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(bin)
}

// Parse and validate the yaml
func Parse(bin []byte) (*File, error) {
	f := &File{}
	if err := yaml.Unmarshal(bin, f); err != nil {
		return nil, err
	}
	return f, f.Validate()
}

// Validate every job
func (f *File) Validate() error {
	if len(f.Jobs) == 0 {
		return fmt.Errorf("jobs: no job")
	}

	for i, j := range f.Jobs {
		if j.URL == "" {
			return fmt.Errorf("jobs: job %d has no url", i)
		}
		if j.Selection.Empty() {
			return fmt.Errorf("jobs: job %d has an empty selection %v", i, j.Selection)
		}
	}
	return nil
}

// Opener opens the page of the url, close releases the page
type Opener func(ctx context.Context, url string) (s *regionshot.Shooter, close func(), err error)

// Report of one job
type Report func(j *Job, res *regionshot.Result, err error)

// Run the jobs one by one, a failed job doesn't stop the rest.
// Returns an error if any job fails.
func (f *File) Run(ctx context.Context, open Opener, report Report) error {
	failed := 0

	for _, j := range f.Jobs {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := f.run(ctx, open, j)
		if err != nil {
			failed++
		}
		report(j, res, err)
	}

	if failed > 0 {
		return fmt.Errorf("jobs: %d of %d jobs failed", failed, len(f.Jobs))
	}
	return nil
}

func (f *File) run(ctx context.Context, open Opener, j *Job) (*regionshot.Result, error) {
	s, closePage, err := open(ctx, j.URL)
	if err != nil {
		return nil, err
	}
	defer closePage()

	s = s.Context(ctx)
	if f.Settle > 0 {
		s = s.Settle(f.Settle)
	}

	region, err := s.RegionAt(j.Selection, j.At)
	if err != nil {
		return nil, err
	}

	return s.Capture(region)
}
