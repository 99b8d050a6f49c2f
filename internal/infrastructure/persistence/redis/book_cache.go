package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/library/internal/domain/book"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BookCache 图书详情缓存（Cache-Aside）
//
// 读：先查缓存，未命中再查数据库并回填
// 写：数据库提交后删除缓存，同时递增该书的版本号
//
// 回填只在版本号与读库前一致时生效：读库期间发生了借阅/归还/编辑，
// 旧快照不会覆盖失效结果
type BookCache struct {
	client *redis.Client
	ttl    time.Duration
}

// versionTTL 版本号的最短保留时间，需长于一次读库回填
const versionTTL = 24 * time.Hour

// setIfVersion KEYS[1]=数据 KEYS[2]=版本号 ARGV[1]=读库前的版本 ARGV[2]=数据 ARGV[3]=毫秒TTL
var setIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if not current then current = '0' end
if current ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// NewBookCache 创建图书缓存
func NewBookCache(client *redis.Client, ttl time.Duration) *BookCache {
	return &BookCache{client: client, ttl: ttl}
}

// cachedBook 缓存中的图书快照
type cachedBook struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Author            string    `json:"author"`
	ISBN              string    `json:"isbn"`
	PublicationYear   int       `json:"publication_year"`
	Description       string    `json:"description"`
	CoverURL          string    `json:"cover_url"`
	CoverPath         string    `json:"cover_path"`
	TotalQuantity     int       `json:"total_quantity"`
	AvailableQuantity int       `json:"available_quantity"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Get 获取图书缓存与当前版本号，未命中返回nil
// 版本号需在读库前获取，回填时交给Set
func (c *BookCache) Get(ctx context.Context, id string) (*book.Book, int64, error) {
	var dataCmd, versionCmd *redis.StringCmd
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		dataCmd = pipe.Get(ctx, bookKey(id))
		versionCmd = pipe.Get(ctx, versionKey(id))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("获取缓存失败: %w", err)
	}

	version, err := versionCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("解析缓存版本失败: %w", err)
	}

	val, err := dataCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, version, nil
		}
		return nil, 0, fmt.Errorf("获取缓存失败: %w", err)
	}

	var cb cachedBook
	if err := json.Unmarshal(val, &cb); err != nil {
		return nil, version, fmt.Errorf("反序列化失败: %w", err)
	}
	return &book.Book{
		ID:                cb.ID,
		Title:             cb.Title,
		Author:            cb.Author,
		ISBN:              cb.ISBN,
		PublicationYear:   cb.PublicationYear,
		Description:       cb.Description,
		Cover:             book.CoverImage{URL: cb.CoverURL, Path: cb.CoverPath},
		TotalQuantity:     cb.TotalQuantity,
		AvailableQuantity: cb.AvailableQuantity,
		CreatedAt:         cb.CreatedAt,
		UpdatedAt:         cb.UpdatedAt,
	}, version, nil
}

// Set 回填图书缓存，version为读库前Get返回的版本号
// 版本号已变化(期间有失效)时不写入，返回false
func (c *BookCache) Set(ctx context.Context, b *book.Book, version int64) (bool, error) {
	val, err := json.Marshal(cachedBook{
		ID:                b.ID,
		Title:             b.Title,
		Author:            b.Author,
		ISBN:              b.ISBN,
		PublicationYear:   b.PublicationYear,
		Description:       b.Description,
		CoverURL:          b.Cover.URL,
		CoverPath:         b.Cover.Path,
		TotalQuantity:     b.TotalQuantity,
		AvailableQuantity: b.AvailableQuantity,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	})
	if err != nil {
		return false, fmt.Errorf("序列化失败: %w", err)
	}

	stored, err := setIfVersion.Run(ctx, c.client,
		[]string{bookKey(b.ID), versionKey(b.ID)},
		strconv.FormatInt(version, 10), val, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("设置缓存失败: %w", err)
	}
	return stored == 1, nil
}

// Invalidate 删除图书缓存并递增版本号
func (c *BookCache) Invalidate(ctx context.Context, id string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, bookKey(id))
		pipe.Incr(ctx, versionKey(id))
		pipe.Expire(ctx, versionKey(id), max(versionTTL, 2*c.ttl))
		return nil
	})
	if err != nil {
		return fmt.Errorf("删除缓存失败: %w", err)
	}
	return nil
}

func bookKey(id string) string {
	return "library:book:" + id
}

func versionKey(id string) string {
	return "library:book:ver:" + id
}
