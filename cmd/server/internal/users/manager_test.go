package users

import (
	"errors"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(t.TempDir(), []byte("test-secret-key-0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

// TestEnsureDefaultAdmin 首次启动创建默认管理员
func TestEnsureDefaultAdmin(t *testing.T) {
	m := newTestManager(t)
	if err := m.EnsureDefaultAdmin("bootstrap-pass"); err != nil {
		t.Fatalf("EnsureDefaultAdmin failed: %v", err)
	}

	u, err := m.Authenticate("admin", "bootstrap-pass")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if u.Role != RoleAdmin || u.Password != "" {
		t.Errorf("admin = %+v, want admin role with password hidden", u)
	}

	// 已有用户时不再覆盖
	if err := m.EnsureDefaultAdmin("other"); err != nil {
		t.Fatalf("second EnsureDefaultAdmin failed: %v", err)
	}
	if _, err := m.Authenticate("admin", "other"); err == nil {
		t.Error("default admin password must not be reset")
	}
}

// TestAuthenticate 用户不存在与密码错误不可区分
func TestAuthenticate(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.CreateUser("alice", "secret-pw", "Alice Smith", RoleMember); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	_, errWrong := m.Authenticate("alice", "nope")
	_, errMissing := m.Authenticate("nobody", "nope")
	if !errors.Is(errWrong, ErrInvalidCredentials) || !errors.Is(errMissing, ErrInvalidCredentials) {
		t.Errorf("errs = %v / %v, want ErrInvalidCredentials for both", errWrong, errMissing)
	}

	if _, err := m.Authenticate("alice", "secret-pw"); err != nil {
		t.Errorf("valid login failed: %v", err)
	}
}

// TestTokenRoundTrip 签发后可解析
func TestTokenRoundTrip(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.CreateUser("alice", "secret-pw", "Alice Smith", RoleMember); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	tok, err := m.GenerateToken("alice")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	claims, err := m.ParseToken(tok)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.Username != "alice" || claims.Role != RoleMember {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := m.ParseToken("not.a.token"); err == nil {
		t.Error("garbage token must not parse")
	}
}

// TestPersistence 重新打开后用户仍在
func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	secret := []byte("test-secret-key-0123456789abcdef")

	m, err := NewManager(dir, secret)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if _, err := m.CreateUser("alice", "secret-pw", "Alice Smith", RoleMember); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	reopened, err := NewManager(dir, secret)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if _, err := reopened.Authenticate("alice", "secret-pw"); err != nil {
		t.Errorf("login after reopen failed: %v", err)
	}
	if name, _ := reopened.DisplayInfo("alice"); name != "Alice Smith" {
		t.Errorf("DisplayInfo = %q, want Alice Smith", name)
	}
}

// TestCreateUserDuplicate 用户名唯一
func TestCreateUserDuplicate(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.CreateUser("alice", "pw1", "", ""); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, err := m.CreateUser("alice", "pw2", "", ""); !errors.Is(err, ErrUserExists) {
		t.Errorf("duplicate = %v, want ErrUserExists", err)
	}
}
