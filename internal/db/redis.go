package db

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedis создаёт клиент Redis и проверяет соединение.
// Возвращает nil при пустом адресе или недоступном сервере:
// вызывающий код обязан деградировать без распределённых лимитов.
func NewRedis(ctx context.Context, addr string) *redis.Client {
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
