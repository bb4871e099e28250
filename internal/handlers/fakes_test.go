package handlers

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atriumhq/atrium-api/internal/apperr"
	"github.com/atriumhq/atrium-api/internal/models"
	"github.com/atriumhq/atrium-api/internal/repository"
)

// fakeStore is an in-memory implementation of the four repository interfaces.
// It mirrors the store's error kinds and guard behavior (pending-unique
// invitations, sole-owner protection, single-organization cap) so handler
// tests exercise the same failure paths the SQL layer produces.
type fakeStore struct {
	users       map[string]models.User
	orgs        map[string]models.Organization
	memberships map[string]models.Membership
	invitations map[string]models.Invitation
	seq         int
}

var (
	_ repository.UserRepository         = (*fakeStore)(nil)
	_ repository.OrganizationRepository = (*fakeStore)(nil)
	_ repository.MembershipRepository   = (*fakeStore)(nil)
	_ repository.InvitationRepository   = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:       make(map[string]models.User),
		orgs:        make(map[string]models.Organization),
		memberships: make(map[string]models.Membership),
		invitations: make(map[string]models.Invitation),
	}
}

func (s *fakeStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// seedUser inserts a user directly, bypassing password hashing.
func (s *fakeStore) seedUser(name, email string, role models.PlatformRole) models.User {
	user := models.User{
		ID:        s.nextID("user"),
		Email:     strings.ToLower(email),
		Name:      name,
		Role:      role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.users[user.ID] = user
	return user
}

func (s *fakeStore) seedOrg(name, slug string) models.Organization {
	org := models.Organization{
		ID:        s.nextID("org"),
		Name:      name,
		Slug:      slug,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.orgs[org.ID] = org
	return org
}

func (s *fakeStore) seedMembership(orgID, userID string, role models.MemberRole) models.Membership {
	m := models.Membership{
		ID:             s.nextID("mem"),
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
		CreatedAt:      time.Now(),
	}
	s.memberships[m.ID] = m
	return m
}

func (s *fakeStore) seedInvitation(orgID, email string, role models.MemberRole, status models.InvitationStatus, inviterID string, expiresAt time.Time) models.Invitation {
	inv := models.Invitation{
		ID:             s.nextID("inv"),
		OrganizationID: orgID,
		Email:          strings.ToLower(email),
		Role:           role,
		Status:         status,
		ExpiresAt:      expiresAt,
		InviterID:      inviterID,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	s.invitations[inv.ID] = inv
	return inv
}

// --- UserRepository ---

func (s *fakeStore) CreateUser(email, name, password string, role models.PlatformRole) (models.User, error) {
	email = strings.ToLower(email)
	for _, u := range s.users {
		if u.Email == email {
			return models.User{}, apperr.New(apperr.KindConflict, "email already registered")
		}
	}
	user := models.User{
		ID:           s.nextID("user"),
		Email:        email,
		Name:         name,
		PasswordHash: password,
		Role:         role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *fakeStore) AuthenticateUser(email, password string) (models.User, error) {
	for _, u := range s.users {
		if u.Email == strings.ToLower(email) && u.PasswordHash == password {
			return u, nil
		}
	}
	return models.User{}, apperr.New(apperr.KindUnauthenticated, "invalid credentials")
}

func (s *fakeStore) GetUserByID(userID string) (models.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, apperr.New(apperr.KindNotFound, "user not found")
	}
	return user, nil
}

func (s *fakeStore) GetUserByEmail(email string) (models.User, error) {
	for _, u := range s.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return models.User{}, apperr.New(apperr.KindNotFound, "user not found")
}

func (s *fakeStore) ListUsers(page, limit int) ([]models.User, int, error) {
	var all []models.User
	for _, u := range s.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	start := (page - 1) * limit
	if start >= total {
		return nil, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *fakeStore) UpdateUserRole(userID string, role models.PlatformRole) (models.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, apperr.New(apperr.KindNotFound, "user not found")
	}
	user.Role = role
	s.users[userID] = user
	return user, nil
}

func (s *fakeStore) BanUser(userID, reason string, expires *time.Time) (models.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, apperr.New(apperr.KindNotFound, "user not found")
	}
	user.Banned = true
	user.BanReason = &reason
	user.BanExpires = expires
	s.users[userID] = user
	return user, nil
}

func (s *fakeStore) UnbanUser(userID string) (models.User, error) {
	user, ok := s.users[userID]
	if !ok {
		return models.User{}, apperr.New(apperr.KindNotFound, "user not found")
	}
	user.Banned = false
	user.BanReason = nil
	user.BanExpires = nil
	s.users[userID] = user
	return user, nil
}

func (s *fakeStore) DeleteUser(userID string) error {
	if _, ok := s.users[userID]; !ok {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	delete(s.users, userID)
	return nil
}

// --- OrganizationRepository ---

func (s *fakeStore) CreateOrganizationWithOwner(name, slug string, logo *string, metadata json.RawMessage, ownerUserID string) (models.Organization, error) {
	for _, o := range s.orgs {
		if o.Slug == slug {
			return models.Organization{}, apperr.New(apperr.KindConflict, "slug already in use")
		}
	}
	org := s.seedOrg(name, slug)
	org.Logo = logo
	org.Metadata = metadata
	s.orgs[org.ID] = org
	s.seedMembership(org.ID, ownerUserID, models.MemberRoleOwner)
	return org, nil
}

func (s *fakeStore) GetOrganizationByID(id string) (models.Organization, error) {
	org, ok := s.orgs[id]
	if !ok {
		return models.Organization{}, apperr.New(apperr.KindNotFound, "organization not found")
	}
	return org, nil
}

func (s *fakeStore) ListOrganizations(params repository.ListOrganizationsParams) ([]models.OrganizationSummary, int, error) {
	var summaries []models.OrganizationSummary
	for _, org := range s.orgs {
		if params.Search != "" && !strings.Contains(strings.ToLower(org.Name), strings.ToLower(params.Search)) {
			continue
		}
		role := models.MemberRoleAdmin
		if params.MemberUserID != "" {
			role = models.MemberRoleNone
			for _, m := range s.memberships {
				if m.OrganizationID == org.ID && m.UserID == params.MemberUserID {
					role = m.Role
					break
				}
			}
			if role == models.MemberRoleNone {
				continue
			}
		}
		count, _ := s.CountMembers(org.ID)
		summaries = append(summaries, models.OrganizationSummary{
			Organization: org,
			Role:         role,
			MemberCount:  count,
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })

	total := len(summaries)
	start := (params.Page - 1) * params.Limit
	if start >= total {
		return nil, total, nil
	}
	end := start + params.Limit
	if end > total {
		end = total
	}
	return summaries[start:end], total, nil
}

func (s *fakeStore) UpdateOrganization(id, name, slug string, logo *string, metadata json.RawMessage) (models.Organization, error) {
	org, ok := s.orgs[id]
	if !ok {
		return models.Organization{}, apperr.New(apperr.KindNotFound, "organization not found")
	}
	for _, o := range s.orgs {
		if o.ID != id && o.Slug == slug {
			return models.Organization{}, apperr.New(apperr.KindConflict, "slug already in use")
		}
	}
	org.Name = name
	org.Slug = slug
	org.Logo = logo
	org.Metadata = metadata
	org.UpdatedAt = time.Now()
	s.orgs[id] = org
	return org, nil
}

func (s *fakeStore) DeleteOrganization(id string) error {
	if _, ok := s.orgs[id]; !ok {
		return apperr.New(apperr.KindNotFound, "organization not found")
	}
	delete(s.orgs, id)
	for mid, m := range s.memberships {
		if m.OrganizationID == id {
			delete(s.memberships, mid)
		}
	}
	return nil
}

// --- MembershipRepository ---

func (s *fakeStore) GetMembershipByID(membershipID string) (models.Membership, error) {
	m, ok := s.memberships[membershipID]
	if !ok {
		return models.Membership{}, apperr.New(apperr.KindNotFound, "membership not found")
	}
	return m, nil
}

func (s *fakeStore) ownerCount(organizationID string) int {
	count := 0
	for _, m := range s.memberships {
		if m.OrganizationID == organizationID && m.Role == models.MemberRoleOwner {
			count++
		}
	}
	return count
}

func (s *fakeStore) RemoveMember(membershipID string) error {
	m, ok := s.memberships[membershipID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "membership not found")
	}
	if m.Role == models.MemberRoleOwner && s.ownerCount(m.OrganizationID) == 1 {
		return apperr.New(apperr.KindInvalidState, "cannot remove the organization's only owner")
	}
	delete(s.memberships, membershipID)
	return nil
}

func (s *fakeStore) UpdateMemberRole(membershipID string, role models.MemberRole) (models.Membership, error) {
	m, ok := s.memberships[membershipID]
	if !ok {
		return models.Membership{}, apperr.New(apperr.KindNotFound, "membership not found")
	}
	if m.Role == models.MemberRoleOwner && role != models.MemberRoleOwner && s.ownerCount(m.OrganizationID) == 1 {
		return models.Membership{}, apperr.New(apperr.KindInvalidState, "cannot remove the organization's only owner")
	}
	m.Role = role
	s.memberships[membershipID] = m
	return m, nil
}

func (s *fakeStore) GetRole(userID, organizationID string) (models.MemberRole, error) {
	for _, m := range s.memberships {
		if m.OrganizationID == organizationID && m.UserID == userID {
			return m.Role, nil
		}
	}
	return models.MemberRoleNone, nil
}

func (s *fakeStore) ListMembers(organizationID string) ([]models.Member, error) {
	var members []models.Member
	for _, m := range s.memberships {
		if m.OrganizationID != organizationID {
			continue
		}
		user := s.users[m.UserID]
		members = append(members, models.Member{
			Membership: m,
			UserName:   user.Name,
			UserEmail:  user.Email,
		})
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

func (s *fakeStore) CountMembers(organizationID string) (int, error) {
	count := 0
	for _, m := range s.memberships {
		if m.OrganizationID == organizationID {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) CountMembershipsOfUser(userID string) (int, error) {
	count := 0
	for _, m := range s.memberships {
		if m.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) HasMemberWithEmail(organizationID, email string) (bool, error) {
	email = strings.ToLower(email)
	for _, m := range s.memberships {
		if m.OrganizationID != organizationID {
			continue
		}
		if user, ok := s.users[m.UserID]; ok && user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// --- InvitationRepository ---

func (s *fakeStore) CreateInvitation(organizationID, email string, role models.MemberRole, inviterID string, expiresAt time.Time) (models.Invitation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	// A lapsed stored-pending invitation no longer blocks a re-invite.
	for id, inv := range s.invitations {
		if inv.OrganizationID == organizationID && inv.Email == email &&
			inv.Status == models.InvitationStatusPending && inv.IsExpired(time.Now()) {
			delete(s.invitations, id)
		}
	}
	for _, inv := range s.invitations {
		if inv.OrganizationID == organizationID && inv.Email == email && inv.Status == models.InvitationStatusPending {
			return models.Invitation{}, apperr.New(apperr.KindConflict, "a pending invitation for this email already exists")
		}
	}
	return s.seedInvitation(organizationID, email, role, models.InvitationStatusPending, inviterID, expiresAt), nil
}

func (s *fakeStore) GetInvitationByID(invitationID string) (models.Invitation, error) {
	inv, ok := s.invitations[invitationID]
	if !ok {
		return models.Invitation{}, apperr.New(apperr.KindNotFound, "invitation not found")
	}
	return inv, nil
}

func (s *fakeStore) detail(inv models.Invitation) models.InvitationDetail {
	inviter := s.users[inv.InviterID]
	org := s.orgs[inv.OrganizationID]
	hasMembership, _ := s.HasMemberWithEmail(inv.OrganizationID, inv.Email)
	return models.InvitationDetail{
		Invitation:       inv,
		InviterName:      inviter.Name,
		InviterEmail:     inviter.Email,
		OrganizationName: org.Name,
		OrganizationSlug: org.Slug,
		HasMembership:    hasMembership,
	}
}

func (s *fakeStore) GetInvitationDetail(invitationID string) (models.InvitationDetail, error) {
	inv, ok := s.invitations[invitationID]
	if !ok {
		return models.InvitationDetail{}, apperr.New(apperr.KindNotFound, "invitation not found")
	}
	return s.detail(inv), nil
}

func (s *fakeStore) ListInvitationsByOrganization(organizationID string) ([]models.InvitationDetail, error) {
	var details []models.InvitationDetail
	for _, inv := range s.invitations {
		if inv.OrganizationID == organizationID {
			details = append(details, s.detail(inv))
		}
	}
	sort.Slice(details, func(i, j int) bool { return details[i].ID < details[j].ID })
	return details, nil
}

func (s *fakeStore) CancelInvitation(invitationID string) error {
	inv, ok := s.invitations[invitationID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "invitation not found")
	}
	if inv.Status != models.InvitationStatusPending {
		return apperr.New(apperr.KindInvalidState, "only pending invitations can be cancelled")
	}
	inv.Status = models.InvitationStatusCancelled
	inv.UpdatedAt = time.Now()
	s.invitations[invitationID] = inv
	return nil
}

func (s *fakeStore) AcceptInvitation(invitationID, userID, userEmail string, singleOrgCap bool) (models.Membership, error) {
	inv, ok := s.invitations[invitationID]
	if !ok {
		return models.Membership{}, apperr.New(apperr.KindNotFound, "invitation not found")
	}
	if !strings.EqualFold(inv.Email, userEmail) {
		return models.Membership{}, apperr.New(apperr.KindForbidden, "invitation was issued to a different email address")
	}
	switch inv.Status {
	case models.InvitationStatusCancelled:
		return models.Membership{}, apperr.New(apperr.KindInvalidState, "invitation has been cancelled")
	case models.InvitationStatusAccepted:
		for _, m := range s.memberships {
			if m.OrganizationID == inv.OrganizationID && m.UserID == userID {
				return m, nil
			}
		}
		return models.Membership{}, apperr.New(apperr.KindInvalidState, "invitation was already used and the membership has since been removed")
	}
	if inv.IsExpired(time.Now()) {
		return models.Membership{}, apperr.New(apperr.KindInvalidState, "invitation has expired")
	}
	if singleOrgCap {
		count, _ := s.CountMembershipsOfUser(userID)
		if count > 0 {
			return models.Membership{}, apperr.New(apperr.KindLimitExceeded, "user already belongs to an organization")
		}
	}
	membership := s.seedMembership(inv.OrganizationID, userID, inv.Role)
	inv.Status = models.InvitationStatusAccepted
	inv.UpdatedAt = time.Now()
	s.invitations[invitationID] = inv
	return membership, nil
}

// fakeMailer records invite sends.
type fakeMailer struct {
	sent []string
	err  error
}

func (m *fakeMailer) SendInvite(email, orgName, inviteURL string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, email)
	return nil
}
