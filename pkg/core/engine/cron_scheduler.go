package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// CronScheduler 定时调度器（对外导出）
// 同一个 Pipeline 上一次运行尚未结束时跳过本次触发
type CronScheduler struct {
	cron      *cron.Cron
	pipelines map[string]*Pipeline    // pipeline名称 -> Pipeline
	entries   map[string]cron.EntryID // pipeline名称 -> cron.EntryID
	onResult  func(report *RunReport, err error)
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewCronScheduler 创建定时调度器（对外导出）
// onResult 可为 nil，每次定时运行结束后调用
func NewCronScheduler(onResult func(report *RunReport, err error)) *CronScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &CronScheduler{
		cron:      cron.New(cron.WithSeconds()), // 支持秒级精度
		pipelines: make(map[string]*Pipeline),
		entries:   make(map[string]cron.EntryID),
		onResult:  onResult,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// ParseCronExpr 校验Cron表达式（6段，含秒；也支持 @every 等描述符）
func ParseCronExpr(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return parser.Parse(expr)
}

// Register 注册Pipeline到定时调度器（对外导出）
func (cs *CronScheduler) Register(p *Pipeline, cronExpr string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, exists := cs.pipelines[p.Name()]; exists {
		return fmt.Errorf("Pipeline %s 已注册到定时调度器", p.Name())
	}
	if cronExpr == "" {
		return fmt.Errorf("Pipeline %s 未设置Cron表达式", p.Name())
	}
	if _, err := ParseCronExpr(cronExpr); err != nil {
		return fmt.Errorf("Pipeline %s 的Cron表达式无效: %w", p.Name(), err)
	}

	logger := cron.PrintfLogger(log.Default())
	job := cron.NewChain(cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(func() {
		cs.trigger(p)
	}))
	entryID, err := cs.cron.AddJob(cronExpr, job)
	if err != nil {
		return fmt.Errorf("添加Cron任务失败: %w", err)
	}

	cs.pipelines[p.Name()] = p
	cs.entries[p.Name()] = entryID
	log.Printf("✅ [Cron调度器] 已注册Pipeline: Name=%s, CronExpr=%s", p.Name(), cronExpr)
	return nil
}

// Unregister 取消注册Pipeline（对外导出）
func (cs *CronScheduler) Unregister(name string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	entryID, exists := cs.entries[name]
	if !exists {
		return fmt.Errorf("Pipeline %s 未注册到定时调度器", name)
	}
	cs.cron.Remove(entryID)
	delete(cs.pipelines, name)
	delete(cs.entries, name)

	log.Printf("✅ [Cron调度器] 已取消注册Pipeline: Name=%s", name)
	return nil
}

// trigger 触发一次运行（内部方法）
func (cs *CronScheduler) trigger(p *Pipeline) {
	log.Printf("🕐 [Cron调度器] 触发Pipeline运行: Name=%s", p.Name())
	report, err := p.Run(cs.ctx)
	if cs.onResult != nil {
		cs.onResult(report, err)
	}
}

// Start 启动定时调度器（对外导出）
func (cs *CronScheduler) Start() {
	cs.cron.Start()
	log.Println("✅ [Cron调度器] 已启动")
}

// Stop 停止定时调度器，等待进行中的运行结束（对外导出）
func (cs *CronScheduler) Stop() {
	cs.cancel()
	<-cs.cron.Stop().Done()
	log.Println("✅ [Cron调度器] 已停止")
}

// Registered 已注册的Pipeline名称（有序）
func (cs *CronScheduler) Registered() []string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	names := make([]string, 0, len(cs.pipelines))
	for name := range cs.pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Next 下一次触发时间，未注册返回错误
func (cs *CronScheduler) Next(name string) (time.Time, error) {
	cs.mu.RLock()
	entryID, ok := cs.entries[name]
	cs.mu.RUnlock()
	if !ok {
		return time.Time{}, fmt.Errorf("Pipeline %s 未注册到定时调度器", name)
	}
	return cs.cron.Entry(entryID).Next, nil
}
