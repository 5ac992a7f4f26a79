package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/RWACH777/yasa-tasker-sub000/data/store/mongostore"
	"github.com/RWACH777/yasa-tasker-sub000/global/config"
	"github.com/RWACH777/yasa-tasker-sub000/logger"
	"github.com/RWACH777/yasa-tasker-sub000/module/chat/chatsvc"
	"github.com/RWACH777/yasa-tasker-sub000/module/market"
	"github.com/RWACH777/yasa-tasker-sub000/module/notify"
	"github.com/RWACH777/yasa-tasker-sub000/module/user"
	"github.com/RWACH777/yasa-tasker-sub000/service/api"
	"github.com/RWACH777/yasa-tasker-sub000/service/feed"
	"github.com/RWACH777/yasa-tasker-sub000/service/media"
	"github.com/RWACH777/yasa-tasker-sub000/service/storage"
	redisx "github.com/RWACH777/yasa-tasker-sub000/service/storage/redis"
	"github.com/RWACH777/yasa-tasker-sub000/tools/errs"
	"github.com/RWACH777/yasa-tasker-sub000/tools/ids"
	"github.com/RWACH777/yasa-tasker-sub000/tools/security"
)

func main() {
	if err := run(); err != nil {
		logger.Errorf("fatal: %v", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return errs.WrapMsg(err, "load config")
	}
	ids.SetNodeID(cfg.NodeID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus, err := feed.Dial(cfg.Nats.URL)
	if err != nil {
		return errs.WrapMsg(err, "connect nats", "url", cfg.Nats.URL)
	}
	defer bus.Close()

	gw, err := mongostore.New(ctx, &mongostore.Config{
		Uri:         cfg.Mongo.Uri,
		Database:    cfg.Mongo.Database,
		Username:    cfg.Mongo.Username,
		Password:    cfg.Mongo.Password,
		AuthSource:  cfg.Mongo.AuthSource,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
		MaxRetry:    cfg.Mongo.MaxRetry,
	}, bus)
	if err != nil {
		return errs.WrapMsg(err, "connect mongo")
	}

	chatCfg := chatsvc.Config{
		MessagePoll:  cfg.Poll.Messages.D(),
		PresencePoll: cfg.Poll.Presence.D(),
	}
	if cfg.Redis.Enabled {
		if err := redisx.InitRedis(redisx.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		}); err != nil {
			// presence degrades to the durable record only
			logger.Warnf("redis unavailable, presence cache disabled: %v", err)
		} else {
			defer func() { _ = redisx.CloseRedis() }()
			chatCfg.Cache = storage.NewPresenceCache(cfg.Redis.PresenceTTL.D())
		}
	}

	users := user.NewService(gw)
	chat := chatsvc.New(gw, users, chatCfg)
	if err := chat.Watch(); err != nil {
		return errs.WrapMsg(err, "start directory watcher")
	}
	defer chat.Stop()

	tasks := market.NewService(gw)
	bell := notify.NewService(gw)
	if err := bell.Watch(); err != nil {
		return errs.WrapMsg(err, "start notification watcher")
	}
	defer bell.Stop()

	h := &api.Handlers{
		Chat:   chat,
		Market: tasks,
		Users:  users,
		Notify: bell,
		Uploader: &media.LocalUploader{
			Dir:     cfg.Media.Dir,
			BaseURL: cfg.Media.BaseURL,
		},
		JWT: security.DefaultOptions([]byte(cfg.JWTSecret)),
	}
	r := api.NewRouter(h)
	r.Static(cfg.Media.BaseURL, cfg.Media.Dir)

	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(cfg.HTTPAddr) }()
	logger.Infof("listening on %s", cfg.HTTPAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return errs.WrapMsg(err, "http server")
	case sig := <-sigCh:
		logger.Infof("shutting down on %v", sig)
		return nil
	}
}
