// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 creditverify 命令行入口。

# 概述

creditverify 驱动真实浏览器登录信用管理应用（账号 + OTP 弹窗），
在支票视图中新增一张支票并验证其出现在列表中，最后写入截图证据。

# 子命令

  - run：执行一次验收；--fakeapp 时先在随机端口托管内置替身应用
  - fakeapp：单独托管替身应用，用于本地调试
  - history：列出最近运行记录（表格或 JSON）
  - version / help

# 退出码

  - 0：验收完成；或中止但 run.fail_on_abort=false
  - 1：在某个检查点中止
  - 2：浏览器无法启动，或参数、配置无效

构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置。
*/
package main
