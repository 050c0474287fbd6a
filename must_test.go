package regionshot_test

import (
	"github.com/go-rod/regionshot"
	"github.com/go-rod/regionshot/lib/fakepage"
)

func (s *S) TestMustPanics() {
	page := fakepage.New(1, 800, 600, 2000)
	sh := shooter(page, fakepage.NewStore())

	s.Panics(func() { sh.MustRegionAt(regionshot.Selection{}, nil) })
	s.Panics(func() { sh.MustCapture(nil) })

	go page.Escape()
	s.Panics(func() { sh.MustStart() })

	go page.Escape()
	s.Panics(func() { sh.MustSelect() })

	s.True(page.Clean())
}
