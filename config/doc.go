// Package config 提供 creditverify 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 环境变量（前缀 CREDITVERIFY）的顺序叠加，
// 默认值复现原始验收脚本的固定输入：admin/admin 凭据、
// http://localhost:5173 目标地址与 CHK123456 支票数据。
package config
