// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 browser 为验收流程提供浏览器会话、弹窗拦截与 OTP 捕获能力。

# 概述

browser 负责一次运行内唯一的浏览器会话：启动浏览器、创建单个页面、
在任何导航之前安装弹窗拦截器，并在任何结束路径上恰好释放一次。

# 核心接口

  - Page：流程消费的页面能力，提供 Navigate / WaitVisible / WaitPresent /
    WaitAbsent / Fill / Click / Screenshot / URL / OnDialog
  - Dialog：页面原生弹窗，必须 Accept 后页面才能继续
  - Launcher：会话获取接口，ChromeLauncher 为 chromedp 实现
  - Locator：按 placeholder、input type、按钮文本、class、可见文本定位元素

# 运行期状态

Session 持有本次运行的 SecretSlot 与 DialogInterceptor，不存在包级全局状态。
拦截器对每个弹窗按出现顺序同步处理：匹配 "Your OTP is: <code>" 时写入
SecretSlot（后写覆盖先写），无论是否匹配都会 Accept。SecretSlot.Wait 让
OTP 检查点等待写入完成，而不是在任意等待之后直接读取共享变量。

# 内置实现

ChromeLauncher 与 ChromePage 基于 chromedp 实现，支持本地启动与
RemoteURL 远程连接、代理、自定义 UserAgent。CDP 事件回调中不能发送命令，
弹窗事件经缓冲通道交由独立 goroutine 顺序应答。
*/
package browser
