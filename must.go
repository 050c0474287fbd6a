// This file contains the methods that panics when error return value is not nil.
// Their function names are all prefixed with Must.

package regionshot

import "github.com/go-rod/regionshot/lib/utils"

// MustStart is similar to Shooter.Start
func (s *Shooter) MustStart() *Result {
	res, err := s.Start()
	utils.E(err)
	return res
}

// MustSelect is similar to Shooter.Select
func (s *Shooter) MustSelect() *Region {
	region, err := s.Select()
	utils.E(err)
	return region
}

// MustCapture is similar to Shooter.Capture
func (s *Shooter) MustCapture(region *Region) *Result {
	res, err := s.Capture(region)
	utils.E(err)
	return res
}

// MustRegionAt is similar to Shooter.RegionAt
func (s *Shooter) MustRegionAt(sel Selection, at *Point) *Region {
	region, err := s.RegionAt(sel, at)
	utils.E(err)
	return region
}
