// Package repotest holds the behaviour every wallet.Repository must share.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	domain "whitelist-bot/internal/domain/wallet"
)

const (
	AddrA = "3N2pXmP9k3Rvz4ZkQW8PUBrGBcgeQKSmLFsJJTnjnvBE"
	AddrB = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	AddrC = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// RepositorySuite runs against a fresh repository per test.
type RepositorySuite struct {
	suite.Suite
	// NewRepository returns an empty repository.
	NewRepository func() domain.Repository

	repo domain.Repository
	ctx  context.Context
	base time.Time
}

func (s *RepositorySuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = s.NewRepository()
	s.base = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
}

func (s *RepositorySuite) record(userID int64, addr string, at time.Duration) *domain.Record {
	return &domain.Record{
		UserID:        userID,
		Username:      fmt.Sprintf("user%d", userID),
		DisplayName:   fmt.Sprintf("User %d", userID),
		WalletAddress: addr,
		UpdatedAt:     s.base.Add(at),
	}
}

func (s *RepositorySuite) TestGetMissReturnsNil() {
	rec, err := s.repo.Get(s.ctx, 404)
	s.Require().NoError(err)
	s.Nil(rec)
}

func (s *RepositorySuite) TestUpsertThenGet() {
	want := s.record(1, AddrA, 0)
	s.Require().NoError(s.repo.Upsert(s.ctx, want))

	got, err := s.repo.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal(AddrA, got.WalletAddress)
	s.Equal("user1", got.Username)
	s.Equal("User 1", got.DisplayName)
	s.True(want.UpdatedAt.Equal(got.UpdatedAt), "updated_at %v != %v", got.UpdatedAt, want.UpdatedAt)
}

func (s *RepositorySuite) TestUpsertSameAddressTwiceKeepsOneRecord() {
	s.Require().NoError(s.repo.Upsert(s.ctx, s.record(1, AddrA, 0)))
	s.Require().NoError(s.repo.Upsert(s.ctx, s.record(1, AddrA, time.Minute)))

	all, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.True(s.base.Add(time.Minute).Equal(all[0].UpdatedAt))
}

func (s *RepositorySuite) TestUpsertReplacesAllMutableFields() {
	s.Require().NoError(s.repo.Upsert(s.ctx, s.record(1, AddrA, 0)))
	edited := s.record(1, AddrB, time.Second)
	edited.Username = "renamed"
	edited.DisplayName = ""
	s.Require().NoError(s.repo.Upsert(s.ctx, edited))

	got, err := s.repo.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(AddrB, got.WalletAddress)
	s.Equal("renamed", got.Username)
	s.Equal("", got.DisplayName)
}

func (s *RepositorySuite) TestUpdatedAtNeverMovesBackwards() {
	s.Require().NoError(s.repo.Upsert(s.ctx, s.record(1, AddrA, time.Hour)))
	s.Require().NoError(s.repo.Upsert(s.ctx, s.record(1, AddrB, 0)))

	got, err := s.repo.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(AddrB, got.WalletAddress, "the later write still wins the address")
	s.True(s.base.Add(time.Hour).Equal(got.UpdatedAt))
}

func (s *RepositorySuite) TestListNewestFirst() {
	s.Require().NoError(s.repo.Upsert(s.ctx, s.record(1, AddrA, 0)))
	s.Require().NoError(s.repo.Upsert(s.ctx, s.record(2, AddrB, 2*time.Second)))
	s.Require().NoError(s.repo.Upsert(s.ctx, s.record(3, AddrC, time.Second)))
	// Editing user 1 moves it to the front.
	s.Require().NoError(s.repo.Upsert(s.ctx, s.record(1, AddrC, 3*time.Second)))

	all, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal([]int64{1, 2, 3}, []int64{all[0].UserID, all[1].UserID, all[2].UserID})
	for i := 1; i < len(all); i++ {
		s.False(all[i].UpdatedAt.After(all[i-1].UpdatedAt))
	}
}

func (s *RepositorySuite) TestListIsDeterministicForEqualTimestamps() {
	for id := int64(1); id <= 5; id++ {
		s.Require().NoError(s.repo.Upsert(s.ctx, s.record(id, AddrA, 0)))
	}
	first, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	second, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *RepositorySuite) TestListEmpty() {
	all, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)
}

func (s *RepositorySuite) TestConcurrentUpsertsSameUser() {
	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	addrs := []string{AddrA, AddrB, AddrC}

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.repo.Upsert(s.ctx, s.record(7, addrs[i%len(addrs)], time.Duration(i)*time.Millisecond))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	all, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Contains(addrs, all[0].WalletAddress)
	s.True(s.base.Add((writers - 1) * time.Millisecond).Equal(all[0].UpdatedAt))
}

func (s *RepositorySuite) TestConcurrentUpsertsDifferentUsers() {
	const users = 25
	var wg sync.WaitGroup
	for i := 1; i <= users; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.NoError(s.repo.Upsert(s.ctx, s.record(id, AddrA, time.Duration(id)*time.Second)))
		}(int64(i))
	}
	wg.Wait()

	all, err := s.repo.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, users)
	s.Equal(int64(users), all[0].UserID)
	s.Equal(int64(1), all[users-1].UserID)
}

func (s *RepositorySuite) TestPing() {
	s.NoError(s.repo.Ping(s.ctx))
}
