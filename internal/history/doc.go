// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 history 提供基于 GORM 的运行历史存储。

每次验证运行写入 cv_runs 表一行：运行 ID、结果、中止检查点、原因、
证据路径与耗时。默认使用纯 Go 的 SQLite（glebarez/sqlite），共享部署
可切换为 postgres 或 mysql。Open 时执行 AutoMigrate。
*/
package history
