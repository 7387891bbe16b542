package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"aurum/internal/catalog"
	"aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	"aurum/pkg/platform/audit"
	"aurum/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	fx    *testutil.Fixture
	svc   *Service
	owner context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.fx = testutil.NewFixture()
	s.svc = New(s.fx.Runner)
	s.owner = testutil.As(testutil.Context(testutil.FixedTime), "olga", domain.RoleOwner)
}

func (s *ServiceSuite) seed(actions ...audit.Action) []audit.Entry {
	ctx := testutil.Context(testutil.FixedTime)
	var out []audit.Entry
	for _, a := range actions {
		e := audit.NewEntry(ctx, a, string(a))
		out = append(out, e)
		s.Require().NoError(s.fx.Store.Update(ctx, func(tx *catalog.Tx) error {
			tx.Append(e)
			return nil
		}))
	}
	return out
}

func (s *ServiceSuite) TestListRecentIsNewestFirst() {
	s.seed(audit.ActionLogin, audit.ActionSecurityAlert, audit.ActionLogout)
	entries, err := s.svc.ListRecent(s.owner, 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(audit.ActionLogout, entries[0].Action)
	s.Equal(audit.ActionSecurityAlert, entries[1].Action)
	s.Greater(entries[0].Seq, entries[1].Seq)
}

func (s *ServiceSuite) TestResolve() {
	seeded := s.seed(audit.ActionSecurityAlert, audit.ActionLogin)
	alert, login := seeded[0], seeded[1]

	open, err := s.svc.ListIncidents(s.owner, audit.StatusOpen)
	s.Require().NoError(err)
	s.Len(open, 1)

	s.Run("admins may not resolve", func() {
		admin := testutil.As(testutil.Context(testutil.FixedTime), "asha", domain.RoleAdmin)
		_, err := s.svc.Resolve(admin, alert.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("non-incidents cannot be resolved", func() {
		_, err := s.svc.Resolve(s.owner, login.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
	})

	s.Run("owner resolves", func() {
		got, err := s.svc.Resolve(s.owner, alert.ID, "false alarm")
		s.Require().NoError(err)
		s.Equal(audit.StatusResolved, got.Status)
		s.Equal("olga", got.ResolvedBy)
		s.Require().NotNil(got.ResolvedAt)

		open, err := s.svc.ListIncidents(s.owner, audit.StatusOpen)
		s.Require().NoError(err)
		s.Empty(open)
		s.Len(s.fx.Entries(s.T(), audit.ActionIncidentResolved), 1)
	})

	s.Run("twice is a precondition failure", func() {
		_, err := s.svc.Resolve(s.owner, alert.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
	})

	s.Run("unknown id", func() {
		_, err := s.svc.Resolve(s.owner, domain.NewAuditID(), "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestListIncidentsRejectsUnknownStatus() {
	_, err := s.svc.ListIncidents(s.owner, "CLOSED")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
