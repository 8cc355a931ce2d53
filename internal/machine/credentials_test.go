package machine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/coffee-bearer/internal/models"
)

func newTestStore() *CredentialStore {
	return NewCredentialStore(nil, DefaultCredentialStoreConfig(), nil)
}

// UID归一化与校验
func TestCredentialStore_UIDValidation(t *testing.T) {
	assert.Equal(t, "0A 1B 2C 3D", NormalizeUID("  0a 1b   2c 3d "))

	valid := []string{
		"0A 1B 2C 3D",
		"AA BB CC",                // 3字节对，8字符下限
		"00 11 22 33 44 55 66 77", // 8字节对，23字符上限
	}
	for _, uid := range valid {
		assert.True(t, ValidateUID(uid), uid)
	}

	invalid := []string{
		"",
		"0A1B2C3D",                   // 缺分隔符
		"0a 1b 2c 3d",                // 小写
		"0A 1B",                      // 过短
		"00 11 22 33 44 55 66 77 88", // 过长
		"GG HH II JJ",                // 非十六进制
		"0A  1B 2C 3D",               // 双空格（归一化后才合法）
	}
	for _, uid := range invalid {
		assert.False(t, ValidateUID(uid), uid)
	}
}

// 名称清洗：去空白、剔除特殊字符、截断到50
func TestCredentialStore_SanitizeName(t *testing.T) {
	assert.Equal(t, "张三", SanitizeName("  张三  "))
	assert.Equal(t, "scriptalert(1)/script", SanitizeName(`<script>alert("1")</script>`))
	long := strings.Repeat("a", 80)
	assert.Len(t, SanitizeName(long), 50)
}

// 场景：登记后初始额度10，耗尽后第11次扣减失败
func TestCredentialStore_CreditLifecycle(t *testing.T) {
	store := newTestStore()

	require.True(t, store.Add("0A 1B 2C 3D", "Alice"))
	assert.Equal(t, DefaultInitialCredits, store.CreditsOf("0A 1B 2C 3D"))

	var now uint32 = 1000
	for i := 0; i < DefaultInitialCredits; i++ {
		assert.True(t, store.ConsumeCredit("0A 1B 2C 3D", now), "第%d次扣减", i+1)
		now += 100
	}
	assert.Equal(t, 0, store.CreditsOf("0A 1B 2C 3D"))

	// 额度耗尽后扣减失败且额度保持0
	assert.False(t, store.ConsumeCredit("0A 1B 2C 3D", now))
	assert.Equal(t, 0, store.CreditsOf("0A 1B 2C 3D"))
}

// 额度守恒：未知卡片扣减失败；额度不可为负
func TestCredentialStore_CreditConservation(t *testing.T) {
	store := newTestStore()
	require.True(t, store.Add("0A 1B 2C 3D", "Alice"))

	assert.False(t, store.ConsumeCredit("FF EE DD CC", 0))
	assert.Equal(t, -1, store.CreditsOf("FF EE DD CC"))

	assert.False(t, store.SetCredits("0A 1B 2C 3D", -1))
	assert.False(t, store.AddCredits("0A 1B 2C 3D", 0))
	assert.False(t, store.AddCredits("0A 1B 2C 3D", -5))
	assert.Equal(t, DefaultInitialCredits, store.CreditsOf("0A 1B 2C 3D"))

	assert.True(t, store.AddCredits("0A 1B 2C 3D", 5))
	assert.Equal(t, DefaultInitialCredits+5, store.CreditsOf("0A 1B 2C 3D"))

	assert.True(t, store.SetCredits("0A 1B 2C 3D", 0))
	assert.Equal(t, 0, store.CreditsOf("0A 1B 2C 3D"))
}

// 登记边界：格式错、重复、满员
func TestCredentialStore_AddRejections(t *testing.T) {
	store := newTestStore()

	assert.False(t, store.Add("not-a-uid", "张三"))
	assert.False(t, store.Add("0A 1B 2C 3D", ""))
	assert.False(t, store.Add("0A 1B 2C 3D", "   "))

	require.True(t, store.Add("0A 1B 2C 3D", "张三"))
	// 重复UID（含归一化后重复）被拒绝
	assert.False(t, store.Add("0A 1B 2C 3D", "李四"))
	assert.False(t, store.Add("0a 1b 2c 3d", "李四"))

	// 填到满员
	for i := store.Count(); i < DefaultMaxUsers; i++ {
		uid := fmt.Sprintf("%02X %02X %02X %02X", i, i, i, i)
		require.True(t, store.Add(uid, fmt.Sprintf("用户%d", i)), uid)
	}
	assert.Equal(t, DefaultMaxUsers, store.Count())
	assert.False(t, store.Add("FE FD FC FB", "超员"))
}

// 每周重置窗口幂等：同一窗口内只触发一次
func TestCredentialStore_WeeklyResetWindow(t *testing.T) {
	store := newTestStore()
	require.True(t, store.Add("0A 1B 2C 3D", "Alice"))
	require.True(t, store.SetCredits("0A 1B 2C 3D", 2))

	store.SetLastResetMs(0)

	// 窗口未满不触发
	assert.False(t, store.ShouldWeeklyReset(WeekMs-1))

	// 窗口期满触发一次
	require.True(t, store.ShouldWeeklyReset(WeekMs))
	store.PerformWeeklyReset(WeekMs)
	assert.Equal(t, DefaultInitialCredits, store.CreditsOf("0A 1B 2C 3D"))

	// 重置后同一窗口内不再触发
	assert.False(t, store.ShouldWeeklyReset(WeekMs+1))
	assert.False(t, store.ShouldWeeklyReset(2*WeekMs-1))

	// 下个窗口再次触发
	assert.True(t, store.ShouldWeeklyReset(2*WeekMs))
}

// 每周重置为无条件重置：高于初始额度的也被拉回
func TestCredentialStore_WeeklyResetUnconditional(t *testing.T) {
	store := newTestStore()
	require.True(t, store.Add("0A 1B 2C 3D", "Alice"))
	require.True(t, store.Add("0A 1B 2C 3E", "Bob"))
	require.True(t, store.SetCredits("0A 1B 2C 3D", 99))
	require.True(t, store.SetCredits("0A 1B 2C 3E", 0))

	store.PerformWeeklyReset(1000)

	assert.Equal(t, DefaultInitialCredits, store.CreditsOf("0A 1B 2C 3D"))
	assert.Equal(t, DefaultInitialCredits, store.CreditsOf("0A 1B 2C 3E"))
	assert.Equal(t, uint32(1000), store.LastResetMs())
}

// 最近使用排序与当日活跃统计
func TestCredentialStore_RecencyQueries(t *testing.T) {
	store := newTestStore()
	require.True(t, store.Add("0A 1B 2C 3D", "Alice"))
	require.True(t, store.Add("0A 1B 2C 3E", "Bob"))
	require.True(t, store.Add("0A 1B 2C 3F", "Carol"))

	store.Touch("0A 1B 2C 3D", 1000)
	store.Touch("0A 1B 2C 3E", 5000)

	now := uint32(6000)
	top := store.TopByRecency(2, now)
	require.Len(t, top, 2)
	assert.Equal(t, "Bob", top[0].Name)
	assert.Equal(t, "Alice", top[1].Name)

	assert.Equal(t, 2, store.ActiveToday(now))

	// 一天后不再算活跃
	assert.Equal(t, 0, store.ActiveToday(5000+DayMs+1))
}

// 注销与总额度
func TestCredentialStore_RemoveAndTotals(t *testing.T) {
	store := newTestStore()
	require.True(t, store.Add("0A 1B 2C 3D", "Alice"))
	require.True(t, store.Add("0A 1B 2C 3E", "Bob"))
	assert.Equal(t, 2*DefaultInitialCredits, store.TotalCredits())

	assert.True(t, store.Remove("0a 1b 2c 3d"))
	assert.False(t, store.Remove("0A 1B 2C 3D"))
	assert.Equal(t, 1, store.Count())
	assert.Equal(t, DefaultInitialCredits, store.TotalCredits())

	_, found := store.Find("0A 1B 2C 3D")
	assert.False(t, found)
}

// memCredRepo 记录落盘调用的内存仓储桩
type memCredRepo struct {
	loadable []*models.Credential
	saved    [][]*models.Credential
	deleted  []string
}

func (r *memCredRepo) Create(ctx context.Context, cred *models.Credential) error { return nil }
func (r *memCredRepo) Update(ctx context.Context, cred *models.Credential) error { return nil }
func (r *memCredRepo) Delete(ctx context.Context, uid string) error {
	r.deleted = append(r.deleted, uid)
	return nil
}
func (r *memCredRepo) FindByUID(ctx context.Context, uid string) (*models.Credential, error) {
	return nil, nil
}
func (r *memCredRepo) GetAll(ctx context.Context) ([]*models.Credential, error) {
	return r.loadable, nil
}
func (r *memCredRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.loadable)), nil
}
func (r *memCredRepo) SaveAll(ctx context.Context, creds []*models.Credential) error {
	snapshot := make([]*models.Credential, len(creds))
	copy(snapshot, creds)
	r.saved = append(r.saved, snapshot)
	return nil
}
func (r *memCredRepo) TotalCredits(ctx context.Context) (int64, error) { return 0, nil }
func (r *memCredRepo) DeleteAll(ctx context.Context) error            { return nil }

// 写回式落盘由保存周期驱动，不依赖优雅退出
func TestCredentialStore_PeriodicFlush(t *testing.T) {
	repo := &memCredRepo{}
	cfg := DefaultCredentialStoreConfig()
	cfg.SaveIntervalMs = 1000
	store := NewCredentialStore(repo, cfg, nil)

	require.True(t, store.Add("0A 1B 2C 3D", "张三"))
	require.True(t, store.Dirty())

	// 未到保存周期不落盘
	store.Tick(999)
	assert.Empty(t, repo.saved)
	assert.True(t, store.Dirty())

	// 到期批量保存并清脏
	store.Tick(1000)
	require.Len(t, repo.saved, 1)
	assert.False(t, store.Dirty())

	// 无变更时不再落盘
	store.Tick(2500)
	assert.Len(t, repo.saved, 1)

	// 扣减后下个周期再次落盘
	require.True(t, store.ConsumeCredit("0A 1B 2C 3D", 2600))
	store.Tick(3000)
	assert.Len(t, repo.saved, 2)
}

// 重启恢复：落盘的最后使用时标领先当前时钟时重新打点
func TestCredentialStore_LoadRestampsFutureLastUsed(t *testing.T) {
	repo := &memCredRepo{loadable: []*models.Credential{
		{UID: "0A 1B 2C 3D", Name: "张三", Credits: 3, LastUsedMs: 500000, Active: true},
		{UID: "0A 1B 2C 3E", Name: "李四", Credits: 5, Active: true},
	}}
	store := NewCredentialStore(repo, DefaultCredentialStoreConfig(), nil)
	require.NoError(t, store.Load(context.Background(), 20))

	cred, found := store.Find("0A 1B 2C 3D")
	require.True(t, found)
	assert.Equal(t, uint32(20), cred.LastUsedMs)

	// 从未使用的保持零值
	cred, found = store.Find("0A 1B 2C 3E")
	require.True(t, found)
	assert.Equal(t, uint32(0), cred.LastUsedMs)
}
