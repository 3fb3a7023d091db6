// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package evidence 在运行结束时写出唯一一张截图。

成功路径写入 SuccessFile，失败路径写入 FailureFile，均位于 Dir 之下。
写入采用临时文件加 rename，目录不存在时自动创建。开启 Sidecar 时在截图旁
写出 <artifact>.json，记录运行 ID、tag、检查点与原因。

失败路径的截图是尽力而为的：CaptureFailure 的错误只记录日志，调用方应
保留原始中止原因。
*/
package evidence
