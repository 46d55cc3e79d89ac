package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
)

type CacheTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache *Cache
	logs  *observer.ObservedLogs
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock

	core, logs := observer.New(zapcore.DebugLevel)
	s.logs = logs
	log := logging.NewLoggerFromCore(core)

	s.cache = NewCache(NewFromUniversal(db, log), log, WithPrefix("test"))
}

func (s *CacheTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

type identity struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
}

func (s *CacheTestSuite) TestKey_Prefixed() {
	s.Equal("test:user:42", s.cache.Key("user:42"))
	s.Equal("bare", NewCache(nil, nil, WithPrefix("")).Key("bare"))
	s.Equal("ns:k", NewCache(nil, nil, WithPrefix("ns:")).Key("k"))
}

func (s *CacheTestSuite) TestGet_Hit() {
	s.mock.ExpectGet("test:user:42").SetVal(`{"sub":"42","email":"a@b.co"}`)

	var got identity
	s.True(s.cache.Get(context.Background(), "user:42", &got))
	s.Equal(identity{Sub: "42", Email: "a@b.co"}, got)
}

func (s *CacheTestSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:user:42").RedisNil()

	var got identity
	s.False(s.cache.Get(context.Background(), "user:42", &got))
	s.Zero(s.logs.Len(), "a miss is not a failure")
}

func (s *CacheTestSuite) TestGet_TransportErrorIsMiss() {
	s.mock.ExpectGet("test:user:42").SetErr(errors.New("i/o timeout"))

	var got identity
	s.False(s.cache.Get(context.Background(), "user:42", &got))
	s.Equal(1, s.logs.FilterMessage("Cache operation failed").Len())
}

func (s *CacheTestSuite) TestGet_CorruptValueIsMiss() {
	s.mock.ExpectGet("test:user:42").SetVal("not-json")

	var got identity
	s.False(s.cache.Get(context.Background(), "user:42", &got))
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:user:42").SetVal(0)
	s.True(s.cache.Delete(context.Background(), "user:42"), "deleting an absent key still succeeds")

	s.mock.ExpectDel("test:user:42").SetErr(errors.New("down"))
	s.False(s.cache.Delete(context.Background(), "user:42"))
}

func (s *CacheTestSuite) TestExists() {
	s.mock.ExpectExists("test:blacklist:tok").SetVal(1)
	s.True(s.cache.Exists(context.Background(), "blacklist:tok"))

	s.mock.ExpectExists("test:blacklist:tok").SetVal(0)
	s.False(s.cache.Exists(context.Background(), "blacklist:tok"))

	s.mock.ExpectExists("test:blacklist:tok").SetErr(errors.New("down"))
	s.False(s.cache.Exists(context.Background(), "blacklist:tok"))
}

func (s *CacheTestSuite) TestExistsE_SurfacesError() {
	s.mock.ExpectExists("test:blacklist:tok").SetErr(errors.New("down"))

	_, err := s.cache.ExistsE(context.Background(), "blacklist:tok")
	s.Error(err)
}

func (s *CacheTestSuite) TestIncrement() {
	s.mock.ExpectIncrBy("test:counter", 3).SetVal(3)
	n, ok := s.cache.Increment(context.Background(), "counter", 3)
	s.True(ok)
	s.Equal(int64(3), n)

	s.mock.ExpectIncrBy("test:counter", 1).SetErr(errors.New("down"))
	_, ok = s.cache.Increment(context.Background(), "counter", 1)
	s.False(ok)
}

func (s *CacheTestSuite) TestExpire() {
	s.mock.ExpectExpire("test:counter", time.Minute).SetVal(true)
	s.True(s.cache.Expire(context.Background(), "counter", time.Minute))

	s.mock.ExpectExpire("test:missing", time.Minute).SetVal(false)
	s.False(s.cache.Expire(context.Background(), "missing", time.Minute))
}

func (s *CacheTestSuite) TestSet_UnserializableValue() {
	s.False(s.cache.Set(context.Background(), "bad", make(chan int), time.Minute))
}

func (s *CacheTestSuite) TestFailureWarningsAreThrottled() {
	for i := 0; i < 5; i++ {
		s.mock.ExpectGet("test:k").SetErr(errors.New("connection refused"))
	}
	for i := 0; i < 5; i++ {
		var v string
		s.False(s.cache.Get(context.Background(), "k", &v))
	}

	warnings := s.logs.FilterMessage("Cache operation failed")
	s.Equal(1, warnings.Len())
	s.Equal("k", warnings.All()[0].ContextMap()["key_space"])
}

func (s *CacheTestSuite) TestFailureLogOmitsToken() {
	s.mock.ExpectExists("test:blacklist:eyJhbGciOi.secret.sig").SetErr(errors.New("down"))
	s.cache.Exists(context.Background(), "blacklist:eyJhbGciOi.secret.sig")

	entry := s.logs.All()[0]
	s.Equal("blacklist", entry.ContextMap()["key_space"])
	for _, v := range entry.ContextMap() {
		s.NotContains(v, "eyJhbGciOi")
	}
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestKeySpace(t *testing.T) {
	assert.Equal(t, "rate_limit", keySpace("rate_limit:ip:1.2.3.4:/api"))
	assert.Equal(t, "plain", keySpace("plain"))
}
