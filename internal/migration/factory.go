package migration

import (
	"fmt"

	"github.com/snowflowhq/snowflow/config"
)

// =============================================================================
// 🏭 从配置构建
// =============================================================================

// OpenFromDatabaseConfig 用服务配置里的数据库段构建迁移执行器。
// 连接串按驱动单独拼：mysql 需要 multiStatements 才能在一个脚本里
// 跑多条语句，sqlite 的 Name 就是文件路径。
func OpenFromDatabaseConfig(cfg config.DatabaseConfig) (*Migrator, error) {
	driver, err := ParseDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}

	var url string
	switch driver {
	case DriverPostgres:
		sslMode := cfg.SSLMode
		if sslMode == "" {
			sslMode = "require"
		}
		url = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, sslMode)
	case DriverMySQL:
		url = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	case DriverSQLite:
		url = fmt.Sprintf("file:%s?mode=rwc&_pragma=foreign_keys(1)", cfg.Name)
	}

	return New(driver, url)
}

// OpenURL 按显式驱动名与连接串构建迁移执行器（migrate 子命令的
// --db-type/--db-url 路径）
func OpenURL(driverName, url string) (*Migrator, error) {
	driver, err := ParseDriver(driverName)
	if err != nil {
		return nil, err
	}
	return New(driver, url)
}
