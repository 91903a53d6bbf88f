package main

import (
	"context"
	"hash/fnv"
	"net/http"

	"github.com/gin-gonic/gin"

	"ChatProject/data/database/mgo"
	"ChatProject/data/database/pg"
	"ChatProject/global"
	"ChatProject/logger"
	mid "ChatProject/middleware"
	chathandler "ChatProject/module/chat"
	chatservice "ChatProject/module/chat/service"
	chatstore "ChatProject/module/chat/store"
	userhandler "ChatProject/module/user"
	userservice "ChatProject/module/user/service"
	userstore "ChatProject/module/user/store"
	"ChatProject/service/hub"
	"ChatProject/service/natsx"
	"ChatProject/service/storage"
	"ChatProject/tools/ids"
	"ChatProject/tools/security"
)

// jwtAuth adapts the jwt helper to the hub's Authenticator.
type jwtAuth struct{ opts security.Options }

func (a jwtAuth) Verify(token string) (string, error) {
	return security.Verify(a.opts, token)
}

// userLookup adapts the user store to the chat service.
type userLookup struct{ store *userstore.Store }

func (l userLookup) Username(ctx context.Context, userID int64) (string, error) {
	u, err := l.store.ByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

func main() {
	cfg := global.LoadConfig()
	ids.SetNodeID(int64(nodeNum(cfg.NodeID)))

	ctx := context.Background()

	if err := storage.InitRedis(storage.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}); err != nil {
		logger.Errorf("redis init: %v", err)
		return
	}
	presence := storage.NewPresence(cfg.NodeID, cfg.PresenceTTL)

	pool, err := pg.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Errorf("postgres connect: %v", err)
		return
	}
	defer pool.Close()

	mdb, err := mgo.Connect(ctx, mgo.Config{URI: cfg.MongoURI, Database: cfg.MongoDB})
	if err != nil {
		logger.Errorf("mongo connect: %v", err)
		return
	}

	users := userstore.New(pool)
	chats := chatstore.NewChats(pool)
	messages := chatstore.NewMessages(mdb)
	if err := users.EnsureSchema(ctx); err != nil {
		logger.Errorf("schema: %v", err)
		return
	}
	if err := chats.EnsureSchema(ctx); err != nil {
		logger.Errorf("schema: %v", err)
		return
	}

	jwtOpts := security.Options{Secret: []byte(cfg.JWTSecret), Alg: "HS256", TTL: cfg.JWTTTL}

	userSvc := userservice.New(users, jwtOpts, presence)
	chatSvc := chatservice.New(chats, messages, userLookup{store: users})

	hubOpts := []hub.Option{
		hub.WithPresence(presence),
		hub.WithQueueSize(cfg.SendQueueSize),
	}

	var nm *natsx.Manager
	if cfg.NatsEnabled {
		nm, err = natsx.NewManager(natsx.Config{Servers: cfg.NatsServers, Name: cfg.NodeID})
		if err != nil {
			logger.Errorf("nats connect: %v", err)
			return
		}
		defer nm.Close()
	}

	gw := hub.NewServer(cfg.NodeID, jwtAuth{opts: jwtOpts}, hubOpts...)
	if nm != nil {
		bridge := hub.NewBridge(nm, cfg.NodeID, gw.Registry())
		if err := bridge.Start(); err != nil {
			logger.Errorf("bridge start: %v", err)
			return
		}
		hub.WithPublisher(bridge)(gw)
		logger.Infof("gateway bridge active node=%s", cfg.NodeID)
	}

	uh := userhandler.NewHandler(userSvc)
	ch := chathandler.NewHandler(chatSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	r.GET("/ws/chats/:chat_id", gw.HandleWS)

	rt := mid.NewRoutes(jwtOpts)
	api := r.Group("/api")
	rt.POST(api, "/signup", uh.Signup, mid.RouteOpt{IsAuth: false})
	rt.POST(api, "/login", uh.Login, mid.RouteOpt{IsAuth: false})
	rt.POST(api, "/logout", uh.Logout, mid.RouteOpt{IsAuth: true})

	rt.GET(api, "/users", uh.List, mid.RouteOpt{IsAuth: true})
	rt.GET(api, "/users/online", uh.Online, mid.RouteOpt{IsAuth: true})
	rt.GET(api, "/profile/:user_id", uh.GetProfile, mid.RouteOpt{IsAuth: true})
	rt.PUT(api, "/profile/:user_id", uh.UpdateProfile, mid.RouteOpt{IsAuth: true})

	rt.GET(api, "/chats", ch.List, mid.RouteOpt{IsAuth: true})
	rt.POST(api, "/chats", ch.StartChat, mid.RouteOpt{IsAuth: true})
	rt.GET(api, "/chats/:chat_id", ch.Get, mid.RouteOpt{IsAuth: true})
	rt.DELETE(api, "/chats/:chat_id", ch.Delete, mid.RouteOpt{IsAuth: true})
	rt.GET(api, "/chats/:chat_id/messages", ch.Messages, mid.RouteOpt{IsAuth: true})
	rt.POST(api, "/chats/:chat_id/messages", ch.SendMessage, mid.RouteOpt{IsAuth: true})
	rt.GET(api, "/chats/:chat_id/messages/latest", ch.LatestMessage, mid.RouteOpt{IsAuth: true})
	rt.POST(api, "/chats/:chat_id/read", ch.MarkRead, mid.RouteOpt{IsAuth: true})
	rt.GET(api, "/messages", ch.UserMessages, mid.RouteOpt{IsAuth: true})
	rt.DELETE(api, "/messages/:message_id", ch.DeleteMessage, mid.RouteOpt{IsAuth: true})

	logger.Infof("gateway %s listening on %s", cfg.NodeID, cfg.HTTPAddr)
	if err := r.Run(cfg.HTTPAddr); err != nil {
		logger.Errorf("http server: %v", err)
	}
}

// nodeNum folds the node id into the snowflake node space.
func nodeNum(nodeID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(nodeID))
	return h.Sum32() % 1024
}
