// 版权所有 2025 SnowFlow Authors. 版权所有。

// Package config 定义 SnowFlow 的全部配置结构与加载逻辑。
//
// 配置按「默认值 → YAML 文件 → SNOWFLOW_ 前缀环境变量」三层合成，
// 环境变量名由各字段的 env tag 逐级拼接得到。
package config
