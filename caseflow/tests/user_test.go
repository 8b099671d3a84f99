package tests

import (
	"io"
	"net/http"
	"slices"
	"testing"
	"time"

	"patentflow/caseflow/auth"
	"patentflow/caseflow/schema"

	"github.com/google/uuid"
)

func TestLoginAndInfo(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	info, err := admin.userInfo()
	if err != nil {
		t.Fatal(err)
	}

	if info.Username != adminUsername || info.Email != adminEmail {
		t.Fatalf("invalid info %v", info)
	}
	if !slices.Contains(info.Roles, schema.RoleAdmin) || info.HighestRole != schema.RoleAdmin {
		t.Fatalf("admin should have the admin role: %v", info)
	}
	if info.Id.String() != admin.userId {
		t.Fatal("user id mismatch between login and info")
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := setupTestEnv(t)

	c := env.newClient()

	badEmail, err := c.Get("/user/login").Login("nosuchuser@mail.com", adminPassword).DoRaw()
	if err != nil {
		t.Fatal(err)
	}
	badPassword, err := c.Get("/user/login").Login(adminEmail, "wrong_password").DoRaw()
	if err != nil {
		t.Fatal(err)
	}

	if badEmail.StatusCode != http.StatusUnauthorized || badPassword.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both failures, got %d and %d", badEmail.StatusCode, badPassword.StatusCode)
	}

	body1, _ := io.ReadAll(badEmail.Body)
	body2, _ := io.ReadAll(badPassword.Body)
	if string(body1) != string(body2) {
		t.Fatalf("failure responses should not reveal which part was wrong: '%s' vs '%s'", body1, body2)
	}
}

func TestSessionCookie(t *testing.T) {
	env := setupTestEnv(t)

	c := env.newClient()

	res, err := c.Get("/user/login").Login(adminEmail, adminPassword).DoRaw()
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login failed with status %d", res.StatusCode)
	}

	var session *http.Cookie
	for _, cookie := range res.Cookies() {
		if cookie.Name == auth.SessionCookieName {
			session = cookie
		}
	}
	if session == nil {
		t.Fatal("login should set a session cookie")
	}
	if !session.HttpOnly {
		t.Fatal("session cookie must be http only")
	}
	ttl := time.Until(session.Expires)
	if ttl < 55*time.Minute || ttl > 65*time.Minute {
		t.Fatalf("session cookie should expire in about an hour, got %v", ttl)
	}

	// The cookie alone must authenticate requests.
	infoRes, err := c.Get("/user/info").Cookie(session).DoRaw()
	if err != nil {
		t.Fatal(err)
	}
	if infoRes.StatusCode != http.StatusOK {
		t.Fatalf("cookie auth failed with status %d", infoRes.StatusCode)
	}

	logoutRes, err := c.Post("/user/logout").Cookie(session).DoRaw()
	if err != nil {
		t.Fatal(err)
	}
	for _, cookie := range logoutRes.Cookies() {
		if cookie.Name == auth.SessionCookieName {
			if cookie.MaxAge >= 0 && cookie.Expires.After(time.Now()) {
				t.Fatal("logout should expire the session cookie")
			}
		}
	}
}

func TestExpiredSessionRejected(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	jwtManager := auth.NewJwtManager(testSecret)
	expired, err := jwtManager.CreateSessionJwtWithExpiry(uuid.MustParse(admin.userId), -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	c := env.newClient()
	c.authToken = expired

	_, err = c.userInfo()
	if !statusErrorIs(err, http.StatusUnauthorized) {
		t.Fatalf("expired session should be rejected: %v", err)
	}
}

func TestUserManagementRoleGating(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}
	manager, err := env.newUser("mgr", schema.RoleManager)
	if err != nil {
		t.Fatal(err)
	}
	processor, err := env.newUser("proc", schema.RoleProcessor)
	if err != nil {
		t.Fatal(err)
	}

	_, err = manager.createUser("other", "other@mail.com", "password123", []string{schema.RoleProcessor})
	if !statusErrorIs(err, http.StatusForbidden) {
		t.Fatalf("managers cannot create users: %v", err)
	}

	_, err = processor.listUsers()
	if !statusErrorIs(err, http.StatusForbidden) {
		t.Fatalf("processors cannot list users: %v", err)
	}

	users, err := manager.listUsers()
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}

	_, err = admin.createUser("nobody", "nobody@mail.com", "password123", []string{"superuser"})
	if !statusErrorIs(err, http.StatusUnprocessableEntity) {
		t.Fatalf("unknown roles should be rejected: %v", err)
	}
}

func TestBulkCreateUsers(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	results, err := admin.bulkCreateUsers([]map[string]interface{}{
		{"username": "u1", "email": "u1@mail.com", "password": "u1_password", "roles": []string{schema.RoleProcessor}},
		{"username": "u2", "email": adminEmail, "password": "u2_password", "roles": []string{schema.RoleQA}},
		{"username": "u3", "email": "u3@mail.com", "password": "u3_password", "roles": []string{schema.RoleManager}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Error != "" || results[0].UserId == "" {
		t.Fatalf("first user should succeed: %v", results[0])
	}
	if results[1].Error == "" {
		t.Fatal("duplicate email should fail")
	}
	if results[2].Error != "" || results[2].UserId == "" {
		t.Fatalf("failure of one entry should not block the others: %v", results[2])
	}

	c := env.newClient()
	if err := c.login(loginInfo{Email: "u3@mail.com", Password: "u3_password"}); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateRolesLastAdminGuard(t *testing.T) {
	env := setupTestEnv(t)

	admin, err := env.adminClient()
	if err != nil {
		t.Fatal(err)
	}

	err = admin.updateRoles(admin.userId, []string{schema.RoleManager})
	if !statusErrorIs(err, http.StatusUnprocessableEntity) {
		t.Fatalf("cannot demote the only admin: %v", err)
	}

	second, err := env.newUser("admin2", schema.RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}

	err = admin.updateRoles(admin.userId, []string{schema.RoleManager})
	if err != nil {
		t.Fatal(err)
	}

	info, err := admin.userInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info.HighestRole != schema.RoleManager {
		t.Fatalf("expected manager after demotion, got %v", info.HighestRole)
	}

	err = second.updateRoles(admin.userId, []string{schema.RoleQA, schema.RoleProcessor})
	if err != nil {
		t.Fatal(err)
	}

	info, err = admin.userInfo()
	if err != nil {
		t.Fatal(err)
	}
	if info.HighestRole != schema.RoleQA || len(info.Roles) != 2 {
		t.Fatalf("unexpected roles after update: %v", info)
	}
}
