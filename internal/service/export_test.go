package service

import "time"

// SetClock replaces the time source used for event windows
func (s *DashboardService) SetClock(now func() time.Time) {
	s.now = now
}
