// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 creditverify 测试的共享工具和辅助函数。

# 概述

testutil 包为各包单元测试提供统一的辅助能力，避免重复实现相似的
测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 配置辅助: FastConfig 返回短超时、证据写入临时目录的配置
  - 日志辅助: ObservedLogger 捕获 zap 日志条目，SyncBuffer 捕获进度输出
  - 异步断言: AssertEventuallyTrue / WaitFor / WaitForChannel

# 子包

  - mocks: FakePage（可编排的 browser.Page）、FakeDialog、Launcher
*/
package testutil
