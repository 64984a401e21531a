package users

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// 角色定义
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// tokenTTL 登录令牌有效期
const tokenTTL = 7 * 24 * time.Hour

var (
	// ErrInvalidCredentials 用户名或密码错误，二者不区分
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists 用户名已占用
	ErrUserExists = errors.New("user exists")
)

// User 数据模型
// Password 存储 bcrypt 哈希，对外返回时清空
type User struct {
	Username    string    `json:"username"`
	Password    string    `json:"password_hash"`
	DisplayName string    `json:"display_name"`
	Avatar      string    `json:"avatar,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Claims 自定义 JWT claims
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Manager 管理用户及 JWT
// 简易文件存储 users/users.json
type Manager struct {
	mu        sync.RWMutex
	users     map[string]*User
	secretKey []byte
	storePath string
}

// NewManager 创建管理器，secret 用于 JWT 签名
func NewManager(storeDir string, secret []byte) (*Manager, error) {
	if len(secret) == 0 {
		return nil, errors.New("secret key required")
	}
	m := &Manager{users: map[string]*User{}, secretKey: secret, storePath: filepath.Join(storeDir, "users.json")}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// load 从文件读取
func (m *Manager) load() error {
	b, err := os.ReadFile(m.storePath)
	if err != nil {
		return nil // first run
	}
	var arr []*User
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	for _, u := range arr {
		m.users[u.Username] = u
	}
	return nil
}

// save 写入文件（全量）
func (m *Manager) save() error {
	arr := []*User{}
	for _, u := range m.users {
		arr = append(arr, u)
	}
	b, _ := json.MarshalIndent(arr, "", "  ")
	if err := os.MkdirAll(filepath.Dir(m.storePath), 0755); err != nil {
		return err
	}
	return os.WriteFile(m.storePath, b, 0644)
}

// EnsureDefaultAdmin 如果没有用户则创建 admin 默认用户
func (m *Manager) EnsureDefaultAdmin(defaultPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.users) > 0 {
		return nil
	}
	hash, err := hashPassword(defaultPassword)
	if err != nil {
		return err
	}
	now := time.Now()
	m.users["admin"] = &User{Username: "admin", Password: hash, DisplayName: "Admin", Role: RoleAdmin, CreatedAt: now, UpdatedAt: now}
	return m.save()
}

// CreateUser 创建用户（用户名唯一）
func (m *Manager) CreateUser(username, password, displayName, role string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username required")
	}
	if password == "" {
		return nil, errors.New("password required")
	}
	if role != RoleAdmin && role != RoleMember {
		role = RoleMember
	}
	if displayName == "" {
		displayName = username
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[username]; exists {
		return nil, ErrUserExists
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	u := &User{Username: username, Password: hash, DisplayName: displayName, Role: role, CreatedAt: now, UpdatedAt: now}
	m.users[username] = u
	if err := m.save(); err != nil {
		return nil, err
	}
	cpy := *u
	cpy.Password = ""
	return &cpy, nil
}

// GetUser 获取单个（隐藏密码）
func (m *Manager) GetUser(username string) (*User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, false
	}
	cpy := *u
	cpy.Password = ""
	return &cpy, true
}

// ListUsers 返回所有用户（隐藏密码）
func (m *Manager) ListUsers() []*User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*User{}
	for _, u := range m.users {
		cpy := *u
		cpy.Password = ""
		out = append(out, &cpy)
	}
	return out
}

// UpdateProfile 更新展示名和头像
func (m *Manager) UpdateProfile(username, displayName, avatar string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	if displayName != "" {
		u.DisplayName = displayName
	}
	u.Avatar = avatar
	u.UpdatedAt = time.Now()
	if err := m.save(); err != nil {
		return nil, err
	}
	cpy := *u
	cpy.Password = ""
	return &cpy, nil
}

// DeleteUser 删除
func (m *Manager) DeleteUser(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; !ok {
		return ErrUserNotFound
	}
	delete(m.users, username)
	return m.save()
}

// ChangePassword 修改密码
func (m *Manager) ChangePassword(username, oldPassword, newPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return ErrUserNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(oldPassword)) != nil {
		return errors.New("old password incorrect")
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	u.Password = hash
	u.UpdatedAt = time.Now()
	return m.save()
}

// Authenticate 验证用户名密码
// 用户不存在与密码错误返回同一错误
func (m *Manager) Authenticate(username, password string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	cpy := *u
	cpy.Password = ""
	return &cpy, nil
}

// GenerateToken 签发登录令牌
func (m *Manager) GenerateToken(username string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return "", ErrUserNotFound
	}
	now := time.Now()
	claims := Claims{
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(m.secretKey)
}

// ParseToken 验证并返回 claims
func (m *Manager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) { return m.secretKey, nil })
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

// DisplayInfo 投影路径使用的作者展示信息
func (m *Manager) DisplayInfo(username string) (string, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return "", ""
	}
	return u.DisplayName, u.Avatar
}
