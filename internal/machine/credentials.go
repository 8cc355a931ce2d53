package machine

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/wfunc/coffee-bearer/internal/models"
	"github.com/wfunc/coffee-bearer/internal/repository"
	"go.uber.org/zap"
)

// UID格式：大写十六进制字节对，空格分隔，总长8-23字符（3-8个字节对）
var uidPattern = regexp.MustCompile(`^[0-9A-F]{2}( [0-9A-F]{2})+$`)

// 名称长度上限
const maxNameLength = 50

// CredentialStoreConfig 卡片库配置
type CredentialStoreConfig struct {
	MaxUsers       int
	InitialCredits int
	ResetInterval  uint32 // 额度重置周期（毫秒）
	SaveIntervalMs uint32 // 防抖落盘周期（毫秒）
}

// DefaultCredentialStoreConfig 默认卡片库配置
func DefaultCredentialStoreConfig() CredentialStoreConfig {
	return CredentialStoreConfig{
		MaxUsers:       DefaultMaxUsers,
		InitialCredits: DefaultInitialCredits,
		ResetInterval:  WeekMs,
		SaveIntervalMs: DefaultSaveInterval,
	}
}

// CredentialStore 卡片授权库。内存为准，写回式落盘：变更先标脏，
// 由上层在落盘周期调用Flush批量保存。
type CredentialStore struct {
	repo   repository.CredentialRepository
	logger *zap.Logger
	cfg    CredentialStoreConfig

	records []*models.Credential
	index   map[string]*models.Credential

	lastResetMs uint32
	lastSaveMs  uint32
	dirty       bool
	removed     []string
}

// NewCredentialStore 创建卡片库
func NewCredentialStore(repo repository.CredentialRepository, cfg CredentialStoreConfig, logger *zap.Logger) *CredentialStore {
	return &CredentialStore{
		repo:   repo,
		logger: logger,
		cfg:    cfg,
		index:  make(map[string]*models.Credential),
	}
}

// Load 从数据库加载全部卡片。now为当前时钟，落盘的最后使用时标
// 领先它的按restoreMark重新打点
func (s *CredentialStore) Load(ctx context.Context, now uint32) error {
	if s.repo == nil {
		return nil
	}
	creds, err := s.repo.GetAll(ctx)
	if err != nil {
		return err
	}
	s.records = creds
	s.index = make(map[string]*models.Credential, len(creds))
	for _, cred := range creds {
		if cred.LastUsedMs != 0 {
			cred.LastUsedMs = restoreMark(now, cred.LastUsedMs)
		}
		s.index[cred.UID] = cred
	}
	if s.logger != nil {
		s.logger.Info("卡片数据已加载", zap.Int("count", len(creds)))
	}
	return nil
}

// NormalizeUID 归一化UID：大写并压缩空白
func NormalizeUID(raw string) string {
	return strings.Join(strings.Fields(strings.ToUpper(raw)), " ")
}

// ValidateUID 校验UID格式
func ValidateUID(uid string) bool {
	if len(uid) < 8 || len(uid) > 23 {
		return false
	}
	return uidPattern.MatchString(uid)
}

// SanitizeName 清洗用户名：去首尾空白、剔除特殊字符、截断
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '\'', '&':
			return -1
		}
		return r
	}, name)
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	return name
}

// Add 登记新卡片，初始额度为配置的初始额度
func (s *CredentialStore) Add(uid, name string) bool {
	uid = NormalizeUID(uid)
	if !ValidateUID(uid) {
		return false
	}
	name = SanitizeName(name)
	if name == "" {
		return false
	}
	if len(s.records) >= s.cfg.MaxUsers {
		return false
	}
	if _, exists := s.index[uid]; exists {
		return false
	}

	cred := &models.Credential{
		UID:     uid,
		Name:    name,
		Credits: s.cfg.InitialCredits,
		Active:  true,
	}
	s.records = append(s.records, cred)
	s.index[uid] = cred
	s.dirty = true

	if s.logger != nil {
		s.logger.Info("登记新卡片", zap.String("uid", uid), zap.String("name", name))
	}
	return true
}

// Remove 注销卡片
func (s *CredentialStore) Remove(uid string) bool {
	uid = NormalizeUID(uid)
	cred, exists := s.index[uid]
	if !exists {
		return false
	}

	delete(s.index, uid)
	for i, r := range s.records {
		if r == cred {
			s.records = append(s.records[:i], s.records[i+1:]...)
			break
		}
	}
	s.removed = append(s.removed, uid)
	s.dirty = true

	if s.logger != nil {
		s.logger.Info("注销卡片", zap.String("uid", uid))
	}
	return true
}

// Update 更新用户名
func (s *CredentialStore) Update(uid, name string) bool {
	cred, exists := s.index[NormalizeUID(uid)]
	if !exists {
		return false
	}
	name = SanitizeName(name)
	if name == "" {
		return false
	}
	cred.Name = name
	s.dirty = true
	return true
}

// Find 查找卡片，返回副本
func (s *CredentialStore) Find(uid string) (models.Credential, bool) {
	cred, exists := s.index[NormalizeUID(uid)]
	if !exists {
		return models.Credential{}, false
	}
	return *cred, true
}

// ConsumeCredit 扣减一次额度并更新最后使用时刻
func (s *CredentialStore) ConsumeCredit(uid string, now uint32) bool {
	cred, exists := s.index[NormalizeUID(uid)]
	if !exists || cred.Credits <= 0 {
		return false
	}
	cred.Credits--
	cred.LastUsedMs = now
	s.dirty = true
	return true
}

// Touch 更新最后使用时刻
func (s *CredentialStore) Touch(uid string, now uint32) {
	if cred, exists := s.index[NormalizeUID(uid)]; exists {
		cred.LastUsedMs = now
		s.dirty = true
	}
}

// AddCredits 增加额度
func (s *CredentialStore) AddCredits(uid string, n int) bool {
	cred, exists := s.index[NormalizeUID(uid)]
	if !exists || n <= 0 {
		return false
	}
	cred.Credits += n
	s.dirty = true
	return true
}

// SetCredits 设置额度，负数拒绝
func (s *CredentialStore) SetCredits(uid string, n int) bool {
	cred, exists := s.index[NormalizeUID(uid)]
	if !exists || n < 0 {
		return false
	}
	cred.Credits = n
	s.dirty = true
	return true
}

// CreditsOf 查询额度，未知卡片返回-1
func (s *CredentialStore) CreditsOf(uid string) int {
	cred, exists := s.index[NormalizeUID(uid)]
	if !exists {
		return -1
	}
	return cred.Credits
}

// ShouldWeeklyReset 是否到达每周额度重置时刻
func (s *CredentialStore) ShouldWeeklyReset(now uint32) bool {
	return elapsed(now, s.lastResetMs) >= s.cfg.ResetInterval
}

// PerformWeeklyReset 无条件把所有用户额度重置为初始额度
func (s *CredentialStore) PerformWeeklyReset(now uint32) {
	for _, cred := range s.records {
		cred.Credits = s.cfg.InitialCredits
	}
	s.lastResetMs = now
	s.dirty = true

	if s.logger != nil {
		s.logger.Info("每周额度重置完成",
			zap.Int("users", len(s.records)),
			zap.Int("credits", s.cfg.InitialCredits),
		)
	}
}

// SetLastResetMs 设置上次重置时刻（启动时从持久化状态恢复）
func (s *CredentialStore) SetLastResetMs(ms uint32) {
	s.lastResetMs = ms
}

// LastResetMs 上次重置时刻
func (s *CredentialStore) LastResetMs() uint32 {
	return s.lastResetMs
}

// ActiveToday 当日刷过卡的用户数
func (s *CredentialStore) ActiveToday(now uint32) int {
	count := 0
	for _, cred := range s.records {
		if cred.LastUsedMs != 0 && elapsed(now, cred.LastUsedMs) < DayMs {
			count++
		}
	}
	return count
}

// TopByRecency 按最近使用排序取前n个（副本）
func (s *CredentialStore) TopByRecency(n int, now uint32) []models.Credential {
	sorted := make([]*models.Credential, len(s.records))
	copy(sorted, s.records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return elapsed(now, sorted[i].LastUsedMs) < elapsed(now, sorted[j].LastUsedMs)
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	out := make([]models.Credential, 0, n)
	for _, cred := range sorted[:n] {
		out = append(out, *cred)
	}
	return out
}

// All 返回全部卡片的副本
func (s *CredentialStore) All() []models.Credential {
	out := make([]models.Credential, 0, len(s.records))
	for _, cred := range s.records {
		out = append(out, *cred)
	}
	return out
}

// Count 卡片数量
func (s *CredentialStore) Count() int {
	return len(s.records)
}

// TotalCredits 系统内剩余总额度
func (s *CredentialStore) TotalCredits() int {
	total := 0
	for _, cred := range s.records {
		total += cred.Credits
	}
	return total
}

// Dirty 是否有未落盘的变更
func (s *CredentialStore) Dirty() bool {
	return s.dirty
}

// Tick 防抖落盘：有脏数据且距上次落盘超过保存周期时批量保存。
// 失败只记录，下个周期重试
func (s *CredentialStore) Tick(now uint32) {
	if !s.dirty || elapsed(now, s.lastSaveMs) < s.cfg.SaveIntervalMs {
		return
	}
	s.lastSaveMs = now
	if err := s.Flush(context.Background()); err != nil {
		if s.logger != nil {
			s.logger.Error("卡片数据落盘失败", zap.Error(err))
		}
	}
}

// Flush 写回式落盘：批量保存变更并删除已注销的卡片
func (s *CredentialStore) Flush(ctx context.Context) error {
	if s.repo == nil {
		s.dirty = false
		s.removed = nil
		return nil
	}
	if !s.dirty {
		return nil
	}

	for _, uid := range s.removed {
		if err := s.repo.Delete(ctx, uid); err != nil {
			return err
		}
	}
	if err := s.repo.SaveAll(ctx, s.records); err != nil {
		return err
	}

	s.removed = nil
	s.dirty = false
	return nil
}

// ClearAll 清空全部卡片（恢复出厂）
func (s *CredentialStore) ClearAll(ctx context.Context) error {
	s.records = nil
	s.index = make(map[string]*models.Credential)
	s.removed = nil
	s.dirty = false
	s.lastResetMs = 0
	if s.repo == nil {
		return nil
	}
	return s.repo.DeleteAll(ctx)
}
