package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// =============================================================================
// 📦 内嵌迁移脚本
// =============================================================================

// 每种驱动一套脚本：workflows 与 templates 两张表的建表语句
// 在方言间有差异（自增、时间戳默认值）。

//go:embed migrations/postgres/*.sql
var postgresFS embed.FS

//go:embed migrations/mysql/*.sql
var mysqlFS embed.FS

//go:embed migrations/sqlite/*.sql
var sqliteFS embed.FS

// Driver 与 config.DatabaseConfig.Driver 取值一致
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverSQLite   Driver = "sqlite"
)

// ParseDriver 归一化驱动名，接受常见别名
func ParseDriver(s string) (Driver, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "pg":
		return DriverPostgres, nil
	case "mysql", "mariadb":
		return DriverMySQL, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver: %s", s)
	}
}

func (d Driver) source() (fs.FS, string, error) {
	switch d {
	case DriverPostgres:
		return postgresFS, "migrations/postgres", nil
	case DriverMySQL:
		return mysqlFS, "migrations/mysql", nil
	case DriverSQLite:
		return sqliteFS, "migrations/sqlite", nil
	default:
		return nil, "", fmt.Errorf("unsupported database driver: %s", d)
	}
}

// =============================================================================
// 🔧 迁移执行器
// =============================================================================

// Status 单个迁移脚本相对当前库版本的状态
type Status struct {
	Version uint
	Name    string
	Applied bool
	Dirty   bool
}

// Migrator 对 snowflow 的 schema 执行 golang-migrate 迁移。
// 只暴露 migrate 子命令用到的动作。
type Migrator struct {
	driver Driver
	db     *sql.DB
	m      *migrate.Migrate
}

// New 按驱动与连接串构建迁移执行器。驱动注册依赖
// golang-migrate 的 database 包（postgres→lib/pq、mysql→go-sql-driver、
// sqlite→modernc）。
func New(driver Driver, url string) (*Migrator, error) {
	if url == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open(string(driver), url)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	var dbDriver database.Driver
	switch driver {
	case DriverPostgres:
		dbDriver, err = postgres.WithInstance(db, &postgres.Config{})
	case DriverMySQL:
		dbDriver, err = mysql.WithInstance(db, &mysql.Config{})
	case DriverSQLite:
		dbDriver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		err = fmt.Errorf("unsupported database driver: %s", driver)
	}
	if err != nil {
		db.Close()
		return nil, err
	}

	fsys, dir, err := driver.source()
	if err != nil {
		db.Close()
		return nil, err
	}
	src, err := iofs.New(fsys, dir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(driver), dbDriver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init migrate: %w", err)
	}

	return &Migrator{driver: driver, db: db, m: m}, nil
}

// Up 应用全部未执行的迁移；无变更不算错误
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down 回滚最近一次迁移
func (mg *Migrator) Down() error {
	if err := mg.m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Reset 回滚全部迁移
func (mg *Migrator) Reset() error {
	if err := mg.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate reset: %w", err)
	}
	return nil
}

// Goto 迁移到指定版本，可升可降
func (mg *Migrator) Goto(version uint) error {
	if err := mg.m.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate goto %d: %w", version, err)
	}
	return nil
}

// Force 不执行脚本，直接改写版本号；用于修复 dirty 状态
func (mg *Migrator) Force(version int) error {
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("migrate force %d: %w", version, err)
	}
	return nil
}

// Version 返回当前库版本与 dirty 标记；空库返回 (0, false, nil)
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read version: %w", err)
	}
	return version, dirty, nil
}

// Status 列出内嵌脚本相对当前版本的应用情况
func (mg *Migrator) Status() ([]Status, error) {
	current, dirty, err := mg.Version()
	if err != nil {
		return nil, err
	}

	available, err := availableMigrations(mg.driver)
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(available))
	for _, a := range available {
		statuses = append(statuses, Status{
			Version: a.version,
			Name:    a.name,
			Applied: a.version <= current,
			Dirty:   dirty && a.version == current,
		})
	}
	return statuses, nil
}

// Close 释放 migrate 实例与数据库连接
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

// =============================================================================
// 📋 脚本枚举
// =============================================================================

type scriptEntry struct {
	version uint
	name    string
}

// availableMigrations 从内嵌目录解析脚本清单，
// 文件名形如 000001_create_workflows.up.sql
func availableMigrations(driver Driver) ([]scriptEntry, error) {
	fsys, dir, err := driver.source()
	if err != nil {
		return nil, err
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}

	var scripts []scriptEntry
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		prefix, rest, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		version, err := strconv.ParseUint(prefix, 10, 32)
		if err != nil {
			continue
		}

		scripts = append(scripts, scriptEntry{
			version: uint(version),
			name:    strings.TrimSuffix(rest, ".up.sql"),
		})
	}

	sort.Slice(scripts, func(i, j int) bool { return scripts[i].version < scripts[j].version })
	return scripts, nil
}
