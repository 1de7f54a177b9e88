package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/config"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/engine"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/logger"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/notify"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/queue"
	"github.com/iWorld-y/pitch_review/app/pitch_review/pkg/storage"
)

func main() {
	confPath := flag.String("conf", "app/pitch_review/configs/worker.yaml", "config path")
	noConsume := flag.Bool("no-consume", false, "只运行定时扫描，不消费提交消息")
	flag.Parse()

	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.LoadConfig(*confPath)
	if err != nil {
		log.Fatalf("无法加载配置文件: %v", err)
	}

	// 2. 初始化日志
	if err = logger.InitLogger(cfg.Log); err != nil {
		log.Fatalf("无法初始化日志: %v", err)
	}
	logger.Log.Info("启动审核 worker...")

	// 3. 初始化存储、通知、引擎
	store, err := storage.NewStorage(cfg.DB)
	if err != nil {
		logger.Log.Fatalf("无法连接数据库: %v", err)
	}
	defer store.Close()

	notifier, closeNotifier, err := notify.NewNotifier(cfg)
	if err != nil {
		logger.Log.Fatalf("无法初始化通知渠道: %v", err)
	}
	defer closeNotifier()

	eng, err := engine.NewEngine(cfg, store, notifier)
	if err != nil {
		logger.Log.Fatalf("无法初始化审核引擎: %v", err)
	}
	defer eng.Wait()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. 定时扫描 pending 项目
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(cfg.Queue.SweepCron, func() {
		n, err := eng.Sweep(ctx, cfg.Queue.SweepBatch)
		if err != nil {
			logger.Log.Errorf("定时扫描失败: %v", err)
			return
		}
		if n > 0 {
			logger.Log.Infof("定时扫描完成，审核 %d 个项目", n)
		}
	}); err != nil {
		logger.Log.Fatalf("无效的 sweep_cron %q: %v", cfg.Queue.SweepCron, err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	// 5. 消费提交消息
	if *noConsume {
		<-ctx.Done()
		logger.Log.Info("收到退出信号")
		return
	}

	mq, err := queue.NewRabbitMQ(cfg.Queue.URL)
	if err != nil {
		logger.Log.Fatalf("无法连接 RabbitMQ: %v", err)
	}
	defer mq.Close()

	if err := mq.DeclareQueue(cfg.Queue.Submitted); err != nil {
		logger.Log.Fatalf("%v", err)
	}

	logger.Log.Infof("开始消费队列 %s", cfg.Queue.Submitted)
	err = mq.ConsumeSubmitted(ctx, cfg.Queue.Submitted, func(ctx context.Context, msg queue.SubmittedMessage) error {
		_, err := eng.FastGate(ctx, msg.PitchID)
		return err
	})
	if err != nil && ctx.Err() == nil {
		logger.Log.Errorf("消费中断: %v", err)
		return
	}
	logger.Log.Info("收到退出信号")
}
