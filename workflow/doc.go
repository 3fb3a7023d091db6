// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package workflow 提供严格有序的检查点执行引擎。

# 概述

Flow 按声明顺序逐个执行 Checkpoint。每个检查点先在自己的等待上限内
观察前置条件成立，再执行动作。任一前置条件超时或动作失败都会立即中止
整个流程，不重试、不跳过。

# 核心类型

  - Checkpoint ：Label + Precondition + Action + Timeout
  - Flow       ：检查点序列与执行器
  - Result     ：Completed 或 Aborted{Checkpoint, Cause}
  - StepRecord ：单个检查点的状态与耗时
  - Observer   ：检查点开始/结束事件（指标、进度输出）
  - Assertion  ：元素可见/不存在断言，Expect 将其转为前置条件

# 错误分类

前置条件失败归类为 CHECKPOINT_TIMEOUT，动作失败归类为 ACTION_FAILED；
错误链中已携带 types.Error 错误码时沿用原错误码。动作内的 panic 被恢复
并作为中止原因返回。

# 追踪

每次运行生成一个 flow span，每个检查点一个子 span，默认使用全局
TracerProvider。
*/
package workflow
