package groupkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Database defines the database operations interface for dependency injection
type Database interface {
	dbkit.IDB
}

// MembershipWriter defines the mutating membership operations
type MembershipWriter interface {
	AddMember(ctx context.Context, p Principal, groupID string, spec MemberSpec) (*MemberRecord, error)
	RemoveMember(ctx context.Context, p Principal, groupID string, member MemberRef) (*RemovalResult, error)
}

// MembershipReader defines the read-only membership operations
type MembershipReader interface {
	GetMember(ctx context.Context, p Principal, groupID string, member MemberRef) (*MemberRecord, error)
	ListMembers(ctx context.Context, p Principal, groupID string, page, perPage int) (*MemberPage, error)
	CountMembers(ctx context.Context, groupID string, includeSubGroups bool) (int, error)
	ListGroupsMemberCount(ctx context.Context, filter MemberCountFilter) ([]GroupMemberCount, error)
	GetMemberGroups(ctx context.Context, member MemberRef) ([]int64, error)
}

// TransactionManager defines the transaction management interface
type TransactionManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context, db dbkit.IDB) error) error
	TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context, db dbkit.IDB) error) error
	ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, db dbkit.IDB) error) error
}

// MigrationManager defines the migration management interface
type MigrationManager interface {
	Migrations() []dbkit.Migration
}

// HealthMonitor defines the health monitoring interface
type HealthMonitor interface {
	Health(ctx context.Context) dbkit.HealthStatus
	IsHealthy(ctx context.Context) bool
	Ping(ctx context.Context) error
	GetPoolStats() dbkit.PoolStats
}

// PoolManager defines the connection pool management interface
type PoolManager interface {
	ConfigureConnectionPool(config PoolConfig) error
	GetConnectionPoolConfig() (*PoolConfig, error)
	ResetConnectionPool() error
}

// TransactionMonitor defines the transaction monitoring interface
type TransactionMonitor interface {
	GetTransactionMetrics() TransactionMetrics
	ResetTransactionMetrics()
	IsTransactionHealthy() bool
}
