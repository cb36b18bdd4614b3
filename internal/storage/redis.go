package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"histobot/pkg/logx"
)

// redisStore keeps state under a key prefix:
//
//	<p>dest:<id>        hash  name, kind, active, last_sent_at, created_at, updated_at
//	<p>dest:active      set   active destination ids
//	<p>send:<day>       hash  destination id -> "fingerprint|sent_at_ms"
//	<p>send:days        zset  day, scored as YYYYMMDD
//	<p>anniv            list  "MM-DD|name"
type redisStore struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
	log    logx.Logger
}

func openRedis(ctx context.Context, cfg RedisConfig, log logx.Logger) (Store, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    []string{addr},
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedisStore(ctx, rdb, cfg, log)
}

func newRedisStore(ctx context.Context, rdb goredis.UniversalClient, cfg RedisConfig, log logx.Logger) (*redisStore, error) {
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "histobot:"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log.Info("redis store opened", logx.String("prefix", prefix))
	return &redisStore{rdb: rdb, prefix: prefix, ttl: cfg.RecordTTL, log: log}, nil
}

func (s *redisStore) destKey(id int64) string { return s.prefix + "dest:" + strconv.FormatInt(id, 10) }
func (s *redisStore) activeKey() string       { return s.prefix + "dest:active" }
func (s *redisStore) sendKey(day string) string {
	return s.prefix + "send:" + day
}
func (s *redisStore) daysKey() string  { return s.prefix + "send:days" }
func (s *redisStore) annivKey() string { return s.prefix + "anniv" }

func (s *redisStore) Close() error { return s.rdb.Close() }

func (s *redisStore) UpsertDestination(ctx context.Context, d Destination) error {
	now := d.UpdatedAt
	if now.IsZero() {
		now = time.Now()
	}
	created := d.CreatedAt
	if created.IsZero() {
		created = now
	}
	key := s.destKey(d.ID)
	fields := map[string]any{
		"kind":       d.Kind,
		"active":     "1",
		"updated_at": now.UnixMilli(),
	}
	if d.DisplayName != "" {
		fields["name"] = d.DisplayName
	}
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSetNX(ctx, key, "created_at", created.UnixMilli())
		p.HSetNX(ctx, key, "name", "")
		p.HSet(ctx, key, fields)
		p.SAdd(ctx, s.activeKey(), d.ID)
		return nil
	})
	return err
}

func (s *redisStore) DeactivateDestination(ctx context.Context, id int64, at time.Time) (bool, error) {
	if at.IsZero() {
		at = time.Now()
	}
	removed, err := s.rdb.SRem(ctx, s.activeKey(), id).Result()
	if err != nil {
		return false, err
	}
	if removed == 0 {
		return false, nil
	}
	if err := s.rdb.HSet(ctx, s.destKey(id), "active", "0", "updated_at", at.UnixMilli()).Err(); err != nil {
		return true, err
	}
	return true, nil
}

func (s *redisStore) GetDestination(ctx context.Context, id int64) (Destination, bool, error) {
	m, err := s.rdb.HGetAll(ctx, s.destKey(id)).Result()
	if err != nil {
		return Destination{}, false, err
	}
	if len(m) == 0 {
		return Destination{}, false, nil
	}
	return destinationFromHash(id, m), true, nil
}

func destinationFromHash(id int64, m map[string]string) Destination {
	d := Destination{
		ID:          id,
		DisplayName: m["name"],
		Kind:        m["kind"],
		Active:      m["active"] == "1",
		CreatedAt:   millisField(m["created_at"]),
		UpdatedAt:   millisField(m["updated_at"]),
	}
	if v := m["last_sent_at"]; v != "" {
		t := millisField(v)
		d.LastSentAt = &t
	}
	return d
}

func millisField(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (s *redisStore) activeIDs(ctx context.Context) ([]int64, error) {
	members, err := s.rdb.SMembers(ctx, s.activeKey()).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			s.log.Warn("skipping malformed destination id", logx.String("member", m))
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *redisStore) ListActiveDestinations(ctx context.Context) ([]Destination, error) {
	ids, err := s.activeIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	cmds, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for _, id := range ids {
			p.HGetAll(ctx, s.destKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]Destination, 0, len(ids))
	for i, c := range cmds {
		m, err := c.(*goredis.MapStringStringCmd).Result()
		if err != nil {
			return nil, err
		}
		if len(m) == 0 {
			continue
		}
		out = append(out, destinationFromHash(ids[i], m))
	}
	return out, nil
}

func (s *redisStore) CountActiveDestinations(ctx context.Context) (int, error) {
	n, err := s.rdb.SCard(ctx, s.activeKey()).Result()
	return int(n), err
}

func dayScore(day string) (float64, error) {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return 0, fmt.Errorf("invalid day %q: %w", day, err)
	}
	return float64(t.Year()*10000 + int(t.Month())*100 + t.Day()), nil
}

func (s *redisStore) PutSendRecord(ctx context.Context, r SendRecord) error {
	if r.SentAt.IsZero() {
		r.SentAt = time.Now()
	}
	score, err := dayScore(r.Day)
	if err != nil {
		return err
	}
	known, err := s.rdb.Exists(ctx, s.destKey(r.DestinationID)).Result()
	if err != nil {
		return err
	}
	key := s.sendKey(r.Day)
	val := r.PostFingerprint + "|" + strconv.FormatInt(r.SentAt.UnixMilli(), 10)
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, key, strconv.FormatInt(r.DestinationID, 10), val)
		if s.ttl > 0 {
			p.Expire(ctx, key, s.ttl)
		}
		p.ZAdd(ctx, s.daysKey(), goredis.Z{Score: score, Member: r.Day})
		if known > 0 {
			p.HSet(ctx, s.destKey(r.DestinationID), "last_sent_at", r.SentAt.UnixMilli())
		}
		return nil
	})
	return err
}

func (s *redisStore) HasSendRecord(ctx context.Context, destinationID int64, day string) (bool, error) {
	return s.rdb.HExists(ctx, s.sendKey(day), strconv.FormatInt(destinationID, 10)).Result()
}

func (s *redisStore) DeleteSendRecordsBefore(ctx context.Context, day string) (int64, error) {
	score, err := dayScore(day)
	if err != nil {
		return 0, err
	}
	days, err := s.rdb.ZRangeByScore(ctx, s.daysKey(), &goredis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatFloat(score, 'f', 0, 64),
	}).Result()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, d := range days {
		n, err := s.deleteDay(ctx, d)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *redisStore) DeleteSendRecordsOn(ctx context.Context, day string) (int64, error) {
	return s.deleteDay(ctx, day)
}

func (s *redisStore) deleteDay(ctx context.Context, day string) (int64, error) {
	key := s.sendKey(day)
	var hlen *goredis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		hlen = p.HLen(ctx, key)
		p.Del(ctx, key)
		p.ZRem(ctx, s.daysKey(), day)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return hlen.Val(), nil
}

func (s *redisStore) AddAnniversary(ctx context.Context, a Anniversary) error {
	return s.rdb.RPush(ctx, s.annivKey(), a.MonthDay+"|"+a.Name).Err()
}

func (s *redisStore) ListAnniversaries(ctx context.Context) ([]Anniversary, error) {
	vals, err := s.rdb.LRange(ctx, s.annivKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Anniversary, 0, len(vals))
	for _, v := range vals {
		md, name, ok := strings.Cut(v, "|")
		if !ok {
			continue
		}
		out = append(out, Anniversary{MonthDay: md, Name: name})
	}
	return out, nil
}
