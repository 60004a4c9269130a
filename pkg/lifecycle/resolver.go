package lifecycle

import (
	"context"
	"strconv"

	"github.com/taskhive/taskhive/pkg/billing"
	"github.com/taskhive/taskhive/pkg/catalog"
	"github.com/taskhive/taskhive/pkg/identity"
	"github.com/taskhive/taskhive/pkg/observability"
	"github.com/taskhive/taskhive/pkg/store"
)

// Reader is the point-in-time read surface the resolver depends on
type Reader interface {
	ListUserMemberships(ctx context.Context, userID int64) ([]*store.OrgMember, error)
	ListUserWorkspaceMemberships(ctx context.Context, userID int64) ([]*store.WorkspaceMember, error)
}

// Resolver computes ResolvedLifecycle values
type Resolver struct {
	reader  Reader
	billing billing.StatusProvider
	logger  *observability.Logger
}

// NewResolver creates a lifecycle resolver
func NewResolver(reader Reader, billingProvider billing.StatusProvider, logger *observability.Logger) *Resolver {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Resolver{
		reader:  reader,
		billing: billingProvider,
		logger:  logger,
	}
}

// Resolve computes the lifecycle resolution for a user. A nil user yields
// the unauthenticated resolution, and so does any persistence read
// failure: a transient backend fault must never silently grant access.
func (r *Resolver) Resolve(ctx context.Context, user *identity.User) *ResolvedLifecycle {
	if user == nil {
		return unauthenticated()
	}

	resolved, err := r.resolveAuthenticated(ctx, user)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", user.ID).
			Warn("lifecycle resolution failed, failing closed")
		return unauthenticated()
	}
	return resolved
}

func (r *Resolver) resolveAuthenticated(ctx context.Context, user *identity.User) (*ResolvedLifecycle, error) {
	resolved := &ResolvedLifecycle{
		AccountType:       user.Preferences.AccountType,
		MustResetPassword: user.Preferences.MustResetPassword,
		IsEmailVerified:   user.IsEmailVerified,
		BillingStatus:     identity.BillingStatusNone,
	}

	workspaces, err := r.reader.ListUserWorkspaceMemberships(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(workspaces) > 0 {
		resolved.HasWorkspace = true
		wsID := workspaces[0].WorkspaceID
		resolved.WorkspaceID = &wsID
	}

	switch {
	case !user.Preferences.AccountType.Valid():
		resolved.State = StateNoAccountType

	case user.Preferences.AccountType == identity.AccountTypePersonal:
		if resolved.HasWorkspace {
			resolved.State = StatePersonalActive
		} else {
			resolved.State = StatePersonalNoWorkspace
		}

	default: // ORG
		if err := r.resolveOrgState(ctx, user, resolved); err != nil {
			return nil, err
		}
	}

	r.applyRouting(user, resolved)
	return resolved, nil
}

// resolveOrgState fills in the organization membership side of the
// resolution: preferred organization from preferences with a fallback to
// the first membership when the preference is stale.
func (r *Resolver) resolveOrgState(ctx context.Context, user *identity.User, resolved *ResolvedLifecycle) error {
	memberships, err := r.reader.ListUserMemberships(ctx, user.ID)
	if err != nil {
		return err
	}

	var membership *store.OrgMember
	if preferred := user.Preferences.PrimaryOrgID; preferred != nil {
		for _, m := range memberships {
			if m.OrganizationID == *preferred {
				membership = m
				break
			}
		}
	}
	if membership == nil && len(memberships) > 0 {
		membership = memberships[0]
	}

	if membership == nil {
		// ORG account with no membership must onboard into an org
		resolved.State = StateNoAccountType
		return nil
	}

	orgID := membership.OrganizationID
	resolved.OrgID = &orgID
	resolved.OrgRole = membership.Role

	if membership.Status == identity.MemberStatusPending {
		resolved.State = StateOrgMemberPending
		return nil
	}

	switch membership.Role {
	case identity.RoleOwner:
		if resolved.HasWorkspace {
			resolved.State = StateOrgOwnerActive
		} else {
			resolved.State = StateOrgOwnerNoWorkspace
		}
	case identity.RoleAdmin:
		if resolved.HasWorkspace {
			resolved.State = StateOrgAdminActive
		} else {
			resolved.State = StateOrgAdminNoWorkspace
		}
	default:
		// MODERATOR maps to the MEMBER branch
		if resolved.HasWorkspace {
			resolved.State = StateOrgMemberActive
		} else {
			resolved.State = StateOrgMemberNoWorkspace
		}
	}

	if r.billing != nil {
		status, err := r.billing.Status(ctx, orgID)
		if err != nil {
			return err
		}
		resolved.BillingStatus = status
	}
	return nil
}

// applyRouting derives the routing hints. The password-reset and legal
// gates are checked before normal state routing and win over it.
func (r *Resolver) applyRouting(user *identity.User, resolved *ResolvedLifecycle) {
	if resolved.MustResetPassword {
		resolved.RedirectTo = catalog.PathResetPassword
		resolved.AllowedPaths = []string{catalog.PathResetPassword}
		resolved.BlockedPaths = []string{"*"}
		return
	}
	if !user.Preferences.LegalAccepted && resolved.State != StateNoAccountType {
		resolved.RedirectTo = catalog.PathLegal
		resolved.AllowedPaths = []string{catalog.PathLegal}
		resolved.BlockedPaths = []string{"*"}
		return
	}

	switch resolved.State {
	case StateNoAccountType:
		resolved.RedirectTo = catalog.PathOnboarding
		resolved.AllowedPaths = []string{catalog.PathOnboarding, catalog.PathInvite, catalog.PathJoin}
		resolved.BlockedPaths = []string{"*"}

	case StateOrgMemberPending:
		resolved.RedirectTo = catalog.PathForRoute(catalog.RouteWelcome, "")
		resolved.AllowedPaths = []string{
			catalog.PathForRoute(catalog.RouteWelcome, ""),
			catalog.PathForRoute(catalog.RouteProfile, ""),
			catalog.PathInvite,
			catalog.PathJoin,
		}
		resolved.BlockedPaths = []string{"*"}

	case StatePersonalNoWorkspace:
		resolved.RedirectTo = catalog.PathForRoute(catalog.RouteWelcome, "")
		resolved.AllowedPaths = []string{
			catalog.PathForRoute(catalog.RouteWelcome, ""),
			catalog.PathOnboarding,
			catalog.PathForRoute(catalog.RouteProfile, ""),
		}
		resolved.BlockedPaths = []string{"/workspaces/*"}

	case StateOrgOwnerNoWorkspace, StateOrgAdminNoWorkspace, StateOrgMemberNoWorkspace:
		resolved.RedirectTo = catalog.PathForRoute(catalog.RouteWelcome, "")
		resolved.AllowedPaths = []string{
			catalog.PathForRoute(catalog.RouteWelcome, ""),
			catalog.PathForRoute(catalog.RouteOrganization, ""),
			catalog.PathOnboarding,
			catalog.PathInvite,
			catalog.PathJoin,
		}
		resolved.BlockedPaths = []string{"/workspaces/*"}

	default:
		// Active states: onboarding and welcome are behind us
		workspacePath := catalog.PathForRoute(catalog.RouteWorkspaces, "")
		if resolved.WorkspaceID != nil {
			workspacePath = catalog.PathForRoute(catalog.RouteWorkspace, strconv.FormatInt(*resolved.WorkspaceID, 10))
		}
		resolved.RedirectTo = workspacePath
		resolved.AllowedPaths = []string{"*"}
		resolved.BlockedPaths = []string{
			catalog.PathOnboarding,
			catalog.PathForRoute(catalog.RouteWelcome, ""),
		}
	}
}

func unauthenticated() *ResolvedLifecycle {
	return &ResolvedLifecycle{
		State:         StateUnauthenticated,
		BillingStatus: identity.BillingStatusNone,
		RedirectTo:    catalog.PathSignIn,
		AllowedPaths:  catalog.PublicAuthPaths(),
		BlockedPaths:  []string{"*"},
	}
}
