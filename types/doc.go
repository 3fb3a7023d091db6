// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 creditverify 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 browser、workflow、
scenario、evidence 等上层模块提供统一的错误码与 Context 传播约定。

# 核心类型

  - Error / ErrorCode：结构化错误体系：SETUP_FAILED、CHECKPOINT_TIMEOUT、
    ACTION_FAILED、OTP_NOT_CAPTURED、EVIDENCE_FAILED 等
  - WithRunID / WithCheckpoint：在 Context 中携带运行 ID 与当前检查点

# 错误工具链

GetErrorCode 与 IsCode 通过 errors.As 穿透 fmt.Errorf 包装链；
IsRetryable 读取 Retryable 标记（本项目所有错误均不重试）。
*/
package types
